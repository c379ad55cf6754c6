package utils

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultPasswordPrompter(t *testing.T) {
	_, err := NewDefaultPasswordPrompter("label", nil, os.Stdout)
	assert.EqualError(t, err, "stdin cannot be nil")

	_, err = NewDefaultPasswordPrompter("label", os.Stdin, nil)
	assert.EqualError(t, err, "stdout cannot be nil")

	_, err = NewDefaultPasswordPrompter("   ", os.Stdin, os.Stdout)
	assert.EqualError(t, err, "prompt label cannot be empty")

	pp, err := NewDefaultPasswordPrompter(" 🔑 passphrase: ", os.Stdin, os.Stdout)
	require.NoError(t, err)
	assert.Equal(t, "🔑 passphrase:", pp.inputLabelText)
}

func TestDefaultPasswordPrompterRun(t *testing.T) {
	newPrompter := func(t *testing.T, out *strings.Builder, input string, readErr error) *defaultPasswordPrompter {
		t.Helper()
		pp, err := NewDefaultPasswordPrompter("🔑 passphrase:", os.Stdin, out)
		require.NoError(t, err)
		pp.readPassword = func(int) ([]byte, error) { return []byte(input), readErr }
		return pp
	}

	t.Run("returns the trimmed passphrase", func(t *testing.T) {
		var out strings.Builder
		passphrase, err := newPrompter(t, &out, " correct horse \n", nil).Run()
		require.NoError(t, err)
		assert.Equal(t, "correct horse", passphrase)
		assert.Equal(t, "🔑 passphrase: \n", out.String())
	})

	t.Run("rejects an empty passphrase", func(t *testing.T) {
		var out strings.Builder
		_, err := newPrompter(t, &out, "  ", nil).Run()
		assert.ErrorIs(t, err, ErrEmptyPassphrase)
	})

	t.Run("terminal error", func(t *testing.T) {
		var out strings.Builder
		_, err := newPrompter(t, &out, "", errors.New("inappropriate ioctl for device")).Run()
		assert.EqualError(t, err, "reading passphrase from the terminal: inappropriate ioctl for device")
	})
}
