// Package log configures the process-wide seelog logger, matching the
// teacher's approach of a single package-level logger swapped in at
// startup rather than one logger instance threaded through every type.
package log

import (
	log "github.com/cihub/seelog"
)

// Debugf, Infof, Warnf and Errorf are re-exported so callers can import
// this package instead of seelog directly, matching the teacher's
// internal/config logging indirection.
var (
	Debugf = log.Debugf
	Infof  = log.Infof
	Warnf  = log.Warnf
	Errorf = log.Errorf
	Flush  = log.Flush
)

// defaultConfig is a minimal seelog XML config used when no on-disk
// logging config is supplied: console output at info level.
const defaultConfig = `
<seelog minlevel="info">
	<outputs formatid="main">
		<console/>
	</outputs>
	<formats>
		<format id="main" format="%Date(2006-01-02 15:04:05) [%LEVEL] %Msg%n"/>
	</formats>
</seelog>
`

// Init installs the default console logger. Call once from main.
func Init() error {
	logger, err := log.LoggerFromConfigAsString(defaultConfig)
	if err != nil {
		return err
	}
	return log.ReplaceLogger(logger)
}
