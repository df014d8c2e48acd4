// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomHandler(t *testing.T) {
	tests := []struct {
		name   string
		entry  *log.Entry
		want   string
		prefix string
	}{
		{
			name:   "plain",
			entry:  &log.Entry{Level: log.InfoLevel, Message: "hello"},
			prefix: "I",
			want:   "hello",
		},
		{
			name: "fields sorted",
			entry: &log.Entry{
				Level:   log.WarnLevel,
				Message: "cache save",
				Fields:  log.Fields{"slot": "splits", "bytes": 12},
			},
			prefix: "W",
			want:   "cache save bytes=12 slot=splits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &CustomHandler{Writer: &buf}
			require.NoError(t, h.HandleLog(tt.entry))

			line := strings.TrimSuffix(buf.String(), "\n")
			parts := strings.SplitN(line, " ", 4)
			require.Len(t, parts, 4)
			assert.Equal(t, tt.prefix, parts[2])
			assert.Equal(t, tt.want, parts[3])
		})
	}
}

func TestInitLogger(t *testing.T) {
	t.Setenv("SPLITCTL_LOG", "debug")
	InitLogger()
	assert.Equal(t, log.DebugLevel, log.Log.(*log.Logger).Level)

	t.Setenv("SPLITCTL_LOG", "")
	InitLogger()
	assert.Equal(t, log.ErrorLevel, log.Log.(*log.Logger).Level)

	SetDebug()
	assert.Equal(t, log.DebugLevel, log.Log.(*log.Logger).Level)
}
