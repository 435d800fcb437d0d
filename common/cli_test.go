// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUsageError(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	assert.False(IsUsageError(nil))
	assert.False(IsUsageError(errors.New("topology: malformed topology document")))
	assert.True(IsUsageError(errors.New(`required flag(s) "destination" not set`)))
	assert.True(IsUsageError(errors.New("unknown flag: --bogus")))
	assert.True(IsUsageError(fmt.Errorf("failed to load config file: %w", errors.New("no such file"))))
	assert.True(IsUsageError(errors.New("accepts 1 arg(s), received 2")))
}
