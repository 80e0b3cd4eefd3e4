package agent

import (
	"context"
	"errors"
	"fmt"
)

// ResearchDestination asks the web research agent for an illustrated destination report. When the
// agent runs out of iterations it retries once with a simpler prompt.
func ResearchDestination(ctx context.Context, a *Agent, destination, interests string) string {
	prompt := fmt.Sprintf("Research %[1]s with a focus on %[2]s. Follow these steps one at a time:\n"+
		"1. First, find general information about %[1]s using Wikipedia search\n"+
		"2. After you have the general information, search for 2-3 images of key attractions separately\n"+
		"3. Then, search specifically for %[2]s-related attractions\n"+
		"4. Finally, compile everything into a comprehensive report with:\n"+
		"   - 2-3 high-quality images with proper URLs (format: ![Description](https://full-image-url))\n"+
		"   - A brief caption for each image\n"+
		"   - Images placed naturally throughout the relevant content\n"+
		"   - Information organized in sections with proper headings\n"+
		"   - Details about %[2]s-related attractions\n"+
		"   - Practical visitor information\n"+
		"Format your final answer in clean markdown", destination, interests)

	report, err := a.Chat(ctx, prompt)
	if err == nil {
		return report
	}
	if errors.Is(err, ErrMaxIterations) {
		a.log.Warnf("Destination research hit the iteration limit, retrying with a simpler prompt")
		fallback := fmt.Sprintf("Create a simple report about %s related to %s. "+
			"Include basic information and 1 image if possible.", destination, interests)
		if report, err := a.Chat(ctx, fallback); err == nil {
			return report
		}
		return fmt.Sprintf("# %s Report\n\nUnable to generate a detailed report at this time. "+
			"Please try again later with a more specific request or check your internet connection.", destination)
	}
	a.log.Errorf("Destination research failed: %v", err)
	return fmt.Sprintf("# Error Researching %s\n\nUnable to complete research: %v\n\n"+
		"Please try again with a different destination or interests.", destination, err)
}

// ResearchEvents asks the web research agent for events matching the traveler's dates and interests.
func ResearchEvents(ctx context.Context, a *Agent, destination, dates, interests string) string {
	prompt := fmt.Sprintf("Research events in %s during %s that match these interests: %s.\n\n"+
		"IMPORTANT: Use the browse_webpage tool to visit websites found in search results "+
		"to get detailed event information. Don't just rely on search snippets.\n\n"+
		"For each event, include:\n"+
		"- Event name\n"+
		"- Date and time\n"+
		"- Venue/location\n"+
		"- Ticket information (if applicable)\n"+
		"- A short description of the event\n"+
		"- Format event images as: ![Event Name](https://full-image-url)\n"+
		"- Format images as: ![Description](https://full-image-url)\n"+
		"- Ensure images are full URLs starting with http:// or https://\n"+
		"- Information is accurate and up-to-date\n"+
		"- Place images naturally throughout the content where relevant\n"+
		"- Format the entire response in clean markdown", destination, dates, interests)

	report, err := a.Chat(ctx, prompt)
	if err != nil {
		a.log.Errorf("Event research failed: %v", err)
		return fmt.Sprintf("# Error Researching Events\n\nUnable to complete event research: %v", err)
	}
	return report
}

// ResearchWeather asks the travel agent for a weather briefing.
func ResearchWeather(ctx context.Context, a *Agent, destination, dates string) string {
	prompt := fmt.Sprintf("Provide detailed weather information for %s during %s including:\n"+
		"1. Temperature ranges\n"+
		"2. Precipitation chances\n"+
		"3. General weather patterns\n"+
		"4. Recommended clothing/gear\n"+
		"Format your response in clean markdown with clear sections.", destination, dates)

	report, err := a.Chat(ctx, prompt)
	if err != nil {
		a.log.Errorf("Weather research failed: %v", err)
		return fmt.Sprintf("# Error Researching Weather\n\nUnable to complete weather research: %v", err)
	}
	return report
}

// SearchFlights asks the travel agent for the top three flight options.
func SearchFlights(ctx context.Context, a *Agent, origin, destination, dates string) string {
	prompt := fmt.Sprintf("Find top 3 affordable and convenient flight options from %s to %s on %s.\n"+
		"Provide concise bullet-point information for each option including airline, departure/arrival times, "+
		"price, and any notable features.", origin, destination, dates)

	report, err := a.Chat(ctx, prompt)
	if err != nil {
		a.log.Errorf("Flight search failed: %v", err)
		return fmt.Sprintf("# Error Searching Flights\n\nUnable to complete flight search: %v", err)
	}
	return report
}

// WriteTravelReport asks the reporter agent to merge the four section reports.
func WriteTravelReport(ctx context.Context, a *Agent, destinationReport, eventsReport, weatherReport, flightReport string) string {
	prompt := "Create a comprehensive travel report that:\n" +
		"1. Maintains all images from the destination and events reports\n" +
		"2. Organizes information in a clear, logical structure\n" +
		"3. Keeps all markdown formatting intact\n" +
		"4. Ensures images are properly displayed with captions\n" +
		"5. Includes all key information from each section\n\n" +
		"Here are the sections to combine:\n\n" +
		"DESTINATION REPORT:\n" + destinationReport + "\n\n" +
		"EVENTS REPORT:\n" + eventsReport + "\n\n" +
		"WEATHER REPORT:\n" + weatherReport + "\n\n" +
		"FLIGHT REPORT:\n" + flightReport

	report, err := a.Chat(ctx, prompt)
	if err != nil {
		a.log.Errorf("Travel report failed: %v", err)
		return fmt.Sprintf("# Error Creating Travel Report\n\nUnable to compile travel report: %v", err)
	}
	return report
}
