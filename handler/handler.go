// Package handler serves the trip form, the live plan pages and the JSON API on top of the plan queue.
package handler

import (
	"github.com/sirupsen/logrus"

	"travelplanner/logging"
)

var log *logrus.Logger

func init() {
	log = logging.GetLogger()
}
