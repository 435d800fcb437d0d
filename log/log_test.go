// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

package log

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/op/go-logging.v1"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	for s, want := range map[string]logging.Level{
		"ERROR":   logging.ERROR,
		"warning": logging.WARNING,
		"NOTICE":  logging.NOTICE,
		"Info":    logging.INFO,
		"DEBUG":   logging.DEBUG,
	} {
		lvl, err := ParseLevel(s)
		require.NoError(err, s)
		require.Equal(want, lvl, s)
	}
	_, err := ParseLevel("LOUD")
	require.Error(err)
}

func TestBackend(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	var buf bytes.Buffer
	b, err := NewWriter(&buf, "NOTICE")
	require.NoError(err)

	l := b.GetLogger("logtest")
	l.Debugf("hidden %d", 1)
	l.Noticef("shown %d", 2)
	require.NotContains(buf.String(), "hidden")
	require.Contains(buf.String(), "NOTI logtest: shown 2")
	require.True(b.IsEnabledFor(logging.ERROR, "logtest"))
	require.False(b.IsEnabledFor(logging.DEBUG, "logtest"))
}

func TestFileBackend(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	f := filepath.Join(t.TempDir(), "mixframe.log")
	b, err := New(f, "INFO", false)
	require.NoError(err)
	b.GetLogger("filetest").Info("written")

	out, err := os.ReadFile(f)
	require.NoError(err)
	require.Contains(string(out), "filetest: written")

	require.NoError(b.Close())
	require.Error(b.Close())

	_, err = New(f, "BOGUS", false)
	require.Error(err)

	b, err = New("", "DEBUG", true)
	require.NoError(err)
	b.GetLogger("discard").Error("nowhere")
	require.NoError(b.Close())
	require.NoError(b.Close())
}
