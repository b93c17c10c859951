package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveAndReadScreenshot(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	path, size, err := store.SaveScreenshot("vrts_abc12345", "homepage", []byte("fake-png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("fake-png-bytes")), size)
	assert.FileExists(t, path)

	data, err := store.ReadScreenshot("vrts_abc12345", "homepage")
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-png-bytes"), data)
}

func TestStore_SaveScreenshotBase64(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, size, err := store.SaveScreenshotBase64("vrts_abc12345", "login", "ZmFrZS1wbmctYnl0ZXM=")
	require.NoError(t, err)
	assert.Equal(t, int64(len("fake-png-bytes")), size)
}

func TestStore_SaveScreenshotBase64_Invalid(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.SaveScreenshotBase64("vrts_abc12345", "login", "not-valid-base64!!")
	assert.Error(t, err)
}

func TestStore_PathEscapeRejected(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.SaveScreenshot("../../etc", "passwd", []byte("x"))
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestStore_SanitizeLabelStripsTraversal(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	path, _, err := store.SaveScreenshot("vrts_abc12345", "../../etc/passwd", []byte("x"))
	require.NoError(t, err)
	assert.Contains(t, path, "vrts_abc12345")
	assert.NotContains(t, path, "..")
}

func TestStore_DeleteAudit(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.SaveScreenshot("vrts_abc12345", "homepage", []byte("x"))
	require.NoError(t, err)

	require.NoError(t, store.DeleteAudit("vrts_abc12345"))

	_, err = store.ReadScreenshot("vrts_abc12345", "homepage")
	assert.Error(t, err)
}

func TestStore_DeleteAudit_PathEscapeRejected(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	err = store.DeleteAudit("../outside")
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestStore_AuditIDWithSeparatorRejected(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.SaveScreenshot("a/b", "homepage", []byte("x"))
	assert.ErrorIs(t, err, ErrPathEscape, "a non-escaping id that still nests a subdirectory must be rejected outright")

	_, _, err = store.SaveScreenshot(`a\b`, "homepage", []byte("x"))
	assert.ErrorIs(t, err, ErrPathEscape)

	_, err = store.ReadScreenshot("a/b", "homepage")
	assert.ErrorIs(t, err, ErrPathEscape)

	err = store.DeleteAudit("a/b")
	assert.ErrorIs(t, err, ErrPathEscape)
}
