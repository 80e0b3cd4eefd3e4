package agent

import (
	"travelplanner/llm"
	"travelplanner/tools"
)

const (
	WebResearchAgentName = "web_research"
	TravelAgentName      = "travel"
	ReporterAgentName    = "reporter"
)

const webResearchPrompt = "You are a Web Research Agent. Your goal is to research destinations and find relevant images. " +
	"You are diligent, thorough, comprehensive, and visual-focused. " +
	"Always provide detailed information and relevant images when available.\n\n" +
	"IMPORTANT: You have the ability to browse webpages using the browse_webpage tool. " +
	"After finding URLs with serper_search, you should use browse_webpage to visit those URLs " +
	"and extract detailed information. Don't just rely on search snippets.\n\n" +
	"Take a single reasoning step per Thought and never chain thoughts without an action in between."

const travelPrompt = "You are a Travel Agent. Your goal is to assist travelers with their queries. " +
	"You are friendly, hardworking, and detailed in reporting back to users. " +
	"Provide specific and actionable information about flights, weather, and travel logistics.\n\n" +
	"IMPORTANT: You have access to tools that can search for flights, check weather information, " +
	"perform web searches, and browse webpages. After finding URLs with web_search_tool, " +
	"you should use web_browse_tool to visit those URLs and extract detailed information " +
	"such as hotel prices, tour details, local transportation options, and more. " +
	"Always verify information with multiple sources when possible.\n\n" +
	"Take a single reasoning step per Thought and never chain thoughts without an action in between."

const reporterPrompt = "You are a Travel Report Agent. Your goal is to write comprehensive travel reports with visual elements. " +
	"You are friendly, hardworking, visual-oriented, and detailed in reporting. " +
	"Create well-structured, informative, and visually appealing travel reports.\n\n" +
	"IMPORTANT: Your primary task is to compile information from various sources into a cohesive, " +
	"engaging travel report. You should preserve all formatting, especially image URLs and markdown " +
	"elements. Organize information logically with clear section headings and maintain a consistent " +
	"style throughout the document.\n\n" +
	"Analyze the information provided to you systematically and make sure the final report keeps " +
	"all image references and markdown formatting."

// NewWebResearchAgent researches destinations and events with search, Wikipedia and page browsing.
func NewWebResearchAgent(provider llm.Provider, ts *tools.Toolset) *Agent {
	return New(WebResearchAgentName, provider, webResearchPrompt, []Tool{
		ts.Serper.Tool("serper_search", "Search the web for information"),
		ts.Wikipedia.ArticlesTool(),
		ts.Wikipedia.ImagesTool(),
		ts.Browser.Tool("browse_webpage", "Browse a webpage and extract its content"),
	}, 3000, 50)
}

// NewTravelAgent handles flights and weather.
func NewTravelAgent(provider llm.Provider, ts *tools.Toolset) *Agent {
	return New(TravelAgentName, provider, travelPrompt, []Tool{
		ts.Amadeus.Tool(),
		ts.Weather.Tool(),
		ts.Serper.Tool("web_search_tool", "Search the web for travel information"),
		ts.Browser.Tool("web_browse_tool", "Browse a webpage and extract travel information"),
	}, 3000, 30)
}

// NewReporterAgent compiles the section reports; it has no tools.
func NewReporterAgent(provider llm.Provider) *Agent {
	return New(ReporterAgentName, provider, reporterPrompt, nil, 4000, 20)
}
