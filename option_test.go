// FILE: lixenwraith/printercfg/option_test.go
package printercfg

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOption(t *testing.T) {
	testCases := []struct {
		line  string
		key   string
		value string
	}{
		{"option: value", "option", "value"},
		{"option : value", "option", "value"},
		{"option :value", "option", "value"},
		{"option= value", "option", "value"},
		{"option = value", "option", "value"},
		{"option =value", "option", "value"},
		{"option: value\n", "option", "value"},
		{"option: value # inline comment", "option", "value"},
		{"option: value # inline comment\n", "option", "value"},
		{"description: homing!", "description", "homing!"},
		{"description: inline macro :-)", "description", "inline macro :-)"},
		{"path: %GCODES_DIR%", "path", "%GCODES_DIR%"},
		{"serial = /dev/serial/by-id/<your-mcu-id>", "serial", "/dev/serial/by-id/<your-mcu-id>"},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%q", tc.line), func(t *testing.T) {
			key, value, err := ParseOption(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.key, key)
			assert.Equal(t, tc.value, value)
		})
	}
}

func TestParseOptionSeparators(t *testing.T) {
	for _, line := range []string{"a: b", "a : b", "a :b", "a= b", "a = b", "a =b", "  a:b  ", "\ta\t=\tb\r\n"} {
		key, value, err := ParseOption(line)
		require.NoError(t, err, line)
		assert.Equal(t, "a", key, line)
		assert.Equal(t, "b", value, line)
	}

	t.Run("FirstSeparatorWins", func(t *testing.T) {
		key, value, err := ParseOption("serial = /dev/serial/by-id/usb-Klipper:if00")
		require.NoError(t, err)
		assert.Equal(t, "serial", key)
		assert.Equal(t, "/dev/serial/by-id/usb-Klipper:if00", value)

		key, value, err = ParseOption("host: a=b")
		require.NoError(t, err)
		assert.Equal(t, "host", key)
		assert.Equal(t, "a=b", value)
	})

	t.Run("SeparatorInsideCommentIgnored", func(t *testing.T) {
		key, value, err := ParseOption("option: value # note: a = b")
		require.NoError(t, err)
		assert.Equal(t, "option", key)
		assert.Equal(t, "value", value)
	})
}

func TestParseOptionRoundTrip(t *testing.T) {
	for _, line := range []string{
		"option = value # comment",
		"description: inline macro :-)",
		"gcode:",
		"serial = /dev/serial/by-id/<your-mcu-id>\n",
	} {
		key, value, err := ParseOption(line)
		require.NoError(t, err)

		key2, value2, err := ParseOption(FormatOption(key, value))
		require.NoError(t, err)
		assert.Equal(t, key, key2)
		assert.Equal(t, value, value2)
	}
}

func TestParseOptionEmptyValue(t *testing.T) {
	key, value, err := ParseOption("gcode:")
	require.NoError(t, err)
	assert.Equal(t, "gcode", key)
	assert.Empty(t, value)

	key, value, err = ParseOption("option: # only a comment")
	require.NoError(t, err)
	assert.Equal(t, "option", key)
	assert.Empty(t, value)
}

func TestParseOptionMalformed(t *testing.T) {
	for _, line := range []string{
		"just some text",
		"",
		"   \n",
		"# just a comment",
		"text # with: a separator in the comment",
		": value",
		" = value",
	} {
		t.Run(fmt.Sprintf("%q", line), func(t *testing.T) {
			key, value, err := ParseOption(line)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedLine)
			assert.Empty(t, key)
			assert.Empty(t, value)

			var mle *MalformedLineError
			require.True(t, errors.As(err, &mle))
			assert.Equal(t, line, mle.Raw)
			assert.NotEmpty(t, mle.Reason)
		})
	}
}

func TestParseOptionConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key, value, err := ParseOption(fmt.Sprintf("key%d = value%d # c", i, i))
			assert.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("key%d", i), key)
			assert.Equal(t, fmt.Sprintf("value%d", i), value)
		}(i)
	}
	wg.Wait()
}
