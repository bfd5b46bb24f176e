package shv

import "github.com/sirupsen/logrus"

var _lg = logrus.New()

// SetLogger replaces the package-wide logger. NewClient uses it when
// given a nil logger, and the default connect/disconnect handlers set by
// NewClientOption log through it. The codecs do not log.
func SetLogger(lg *logrus.Logger) {
	_lg = lg
}
