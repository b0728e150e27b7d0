package browser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// cookieJarPage remembers cookies set on it.
type cookieJarPage struct {
	fakePage
	jar []Cookie
}

func (p *cookieJarPage) Cookies(context.Context) ([]Cookie, error) { return p.jar, nil }

func (p *cookieJarPage) SetCookies(_ context.Context, cookies []Cookie) error {
	p.jar = append(p.jar, cookies...)
	return nil
}

func TestCookieRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cookies", "testchat.json")

	saved := &cookieJarPage{jar: []Cookie{
		{Name: "session", Value: "abc123", Domain: ".chat.test", Path: "/", Secure: true},
		{Name: "csrf", Value: "tok", Domain: ".chat.test", Path: "/"},
	}}
	src := &Session{ID: "s1", TargetID: "testchat", pc: saved, cookiePath: path, logger: zap.NewNop()}
	require.NoError(t, src.SaveCookies(context.Background()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "cookie store is private")

	restored := &cookieJarPage{}
	dst := &Session{ID: "s2", TargetID: "testchat", pc: restored, cookiePath: path, logger: zap.NewNop()}
	require.NoError(t, dst.LoadCookies(context.Background()))
	assert.Equal(t, saved.jar, restored.jar)
}

func TestLoadCookiesNoStore(t *testing.T) {
	s := &Session{
		TargetID:   "testchat",
		pc:         &cookieJarPage{},
		cookiePath: filepath.Join(t.TempDir(), "missing.json"),
		logger:     zap.NewNop(),
	}
	require.NoError(t, s.LoadCookies(context.Background()))
}

func TestLoadCookiesCorruptStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := &Session{TargetID: "testchat", pc: &cookieJarPage{}, cookiePath: path, logger: zap.NewNop()}
	require.Error(t, s.LoadCookies(context.Background()))
}

func TestCookiePathEmptyIsNoop(t *testing.T) {
	s := &Session{TargetID: "testchat", pc: &cookieJarPage{}, logger: zap.NewNop()}
	require.NoError(t, s.SaveCookies(context.Background()))
	require.NoError(t, s.LoadCookies(context.Background()))
}
