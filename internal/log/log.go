// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/apex/log"
)

// InitLogger sets up Apex with a custom handler and a log level from the
// SPLITCTL_LOG env variable.
func InitLogger() {
	level := strings.ToUpper(os.Getenv("SPLITCTL_LOG"))
	if level == "" {
		level = "ERROR"
	}
	log.SetHandler(&CustomHandler{})
	log.SetLevelFromString(level)
}

// SetDebug forces the DEBUG level regardless of SPLITCTL_LOG.
func SetDebug() {
	log.SetLevel(log.DebugLevel)
}

// CustomHandler formats log messages and writes to stdout, or to Writer when
// it is set.
type CustomHandler struct {
	Writer io.Writer
}

// HandleLog implements the log.Handler interface
func (h *CustomHandler) HandleLog(e *log.Entry) error {
	w := h.Writer
	if w == nil {
		w = os.Stdout
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	level := strings.ToUpper(e.Level.String())

	message := e.Message
	if len(e.Fields) > 0 {
		names := e.Fields.Names()
		sort.Strings(names)
		for _, name := range names {
			message += fmt.Sprintf(" %s=%v", name, e.Fields.Get(name))
		}
	}

	fmt.Fprintf(w, "%s %.1s %s\n", timestamp, level, message)
	return nil
}
