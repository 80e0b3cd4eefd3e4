// Package queue runs plan jobs on a fixed pool of workers and keeps their progress in memory
// until a retention window has passed.
package queue

import (
	"github.com/sirupsen/logrus"

	"travelplanner/logging"
)

var log *logrus.Logger

func init() {
	log = logging.GetLogger()
}
