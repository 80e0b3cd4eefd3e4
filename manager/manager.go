package manager

import (
	"github.com/sirupsen/logrus"
	"travelplanner/logging"
)

var log *logrus.Logger

func init() {
	log = logging.GetLogger()
}
