package relay

// nopLogger satisfies log.Logger for tests.
type nopLogger struct{}

func (nopLogger) Debugf(format string, args ...interface{}) {}
func (nopLogger) Infof(format string, args ...interface{})  {}
func (nopLogger) Warnf(format string, args ...interface{})  {}
func (nopLogger) Errorf(format string, args ...interface{}) {}
func (nopLogger) Fatalf(format string, args ...interface{}) {}
