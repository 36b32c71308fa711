package session

import (
	"io/ioutil"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/gvfbla/jobboard/internal/role"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ada = Identity{ID: "u-1", Username: "ada", Role: role.Student, Email: "ada@example.edu"}

func newStore(st Storage) *Store {
	return NewStore(st, zerolog.Nop())
}

func TestEstablishThenCurrent(t *testing.T) {
	st := NewMemoryStorage()
	s := newStore(st)
	s.Establish(ada, "tok-1")

	assert.Equal(t, ada, s.Current())
	assert.Equal(t, "tok-1", s.Credential())
	assert.Equal(t, role.Capabilities{CanApply: true}, s.Capabilities())

	token, ok := st.Get(KeyToken)
	require.True(t, ok)
	assert.Equal(t, "tok-1", token)
	raw, ok := st.Get(KeyUser)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"u-1","username":"ada","role":"STUDENT","email":"ada@example.edu"}`, raw)
}

func TestEstablishReplacesWholesale(t *testing.T) {
	s := newStore(NewMemoryStorage())
	s.Establish(ada, "tok-1")
	grace := Identity{ID: "u-2", Username: "grace", Role: role.Employer}
	s.Establish(grace, "tok-2")

	assert.Equal(t, grace, s.Current())
	assert.Equal(t, "tok-2", s.Credential())
}

func TestEstablishPartialForcesLogout(t *testing.T) {
	st := NewMemoryStorage()
	s := newStore(st)
	s.Establish(ada, "tok-1")

	s.Establish(ada, "")
	assert.Equal(t, Anonymous, s.Current())
	assert.Empty(t, s.Credential())
	_, ok := st.Get(KeyToken)
	assert.False(t, ok)
}

func TestRestoreRoundTrip(t *testing.T) {
	st := NewMemoryStorage()
	newStore(st).Establish(ada, "tok-1")

	s := newStore(st)
	assert.True(t, s.Restore())
	assert.Equal(t, ada, s.Current())
	assert.Equal(t, "tok-1", s.Credential())
}

func TestRestoreEmpty(t *testing.T) {
	s := newStore(NewMemoryStorage())
	assert.False(t, s.Restore())
	assert.Equal(t, Anonymous, s.Current())
}

func TestRestoreCorruptedEqualsClear(t *testing.T) {
	cases := map[string]map[string]string{
		"unparseable identity": {KeyToken: "tok", KeyUser: "{not json"},
		"token only":           {KeyToken: "tok"},
		"identity only":        {KeyUser: `{"id":"u-1","username":"ada"}`},
		"empty token":          {KeyToken: "", KeyUser: `{"id":"u-1","username":"ada"}`},
		"partial identity":     {KeyToken: "tok", KeyUser: `{"role":"ADMIN"}`},
	}
	for name, persisted := range cases {
		t.Run(name, func(t *testing.T) {
			st := NewMemoryStorage()
			require.NoError(t, st.Put(persisted))
			s := newStore(st)
			assert.False(t, s.Restore())

			cleared := newStore(NewMemoryStorage())
			cleared.Clear()
			assert.Equal(t, cleared.Current(), s.Current())
			assert.Equal(t, cleared.Credential(), s.Credential())
			_, hasToken := st.Get(KeyToken)
			_, hasUser := st.Get(KeyUser)
			assert.False(t, hasToken)
			assert.False(t, hasUser)
		})
	}
}

func TestDecodeReportsCorruption(t *testing.T) {
	_, err := decode("tok", true, "][", true)
	require.Error(t, err)
	assert.Equal(t, ErrCorrupted, errors.Cause(err))
}

func TestClearIsIdempotent(t *testing.T) {
	s := newStore(NewMemoryStorage())
	s.Clear()
	s.Clear()
	assert.Equal(t, Anonymous, s.Current())

	s.Establish(ada, "tok")
	s.Clear()
	s.Clear()
	assert.Equal(t, Anonymous, s.Current())
	assert.True(t, s.Capabilities().None())
}

func TestUnknownRoleRestoresWithNoCapabilities(t *testing.T) {
	st := NewMemoryStorage()
	require.NoError(t, st.Put(map[string]string{KeyToken: "tok", KeyUser: `{"id":"u-9","username":"eve","role":"ROOT"}`}))
	s := newStore(st)
	assert.True(t, s.Restore())
	assert.True(t, s.Capabilities().None())
}

func TestFileStorage(t *testing.T) {
	dir, err := ioutil.TempDir("", "jobboard-session")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "nested", "session.json")

	newStore(NewFileStorage(path)).Establish(ada, "tok-file")

	s := newStore(NewFileStorage(path))
	require.True(t, s.Restore())
	assert.Equal(t, ada, s.Current())

	s.Clear()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStorageCorruptDocument(t *testing.T) {
	dir, err := ioutil.TempDir("", "jobboard-session")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "session.json")
	require.NoError(t, ioutil.WriteFile(path, []byte("garbage"), 0600))

	fs := NewFileStorage(path)
	s := newStore(fs)
	assert.False(t, s.Restore())
	assert.Equal(t, Anonymous, s.Current())
	assert.False(t, fs.Corrupted())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCookieStorage(t *testing.T) {
	cs := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))
	r := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	sess, err := cs.Get(r, "____jb")
	require.NoError(t, err)

	newStore(NewCookieStorage(sess, r, w)).Establish(ada, "tok-cookie")
	require.NotEmpty(t, w.Header().Get("Set-Cookie"))

	// replay the cookie on a fresh request
	r2 := httptest.NewRequest("GET", "/", nil)
	for _, c := range w.Result().Cookies() {
		r2.AddCookie(c)
	}
	sess2, err := cs.Get(r2, "____jb")
	require.NoError(t, err)
	s := newStore(NewCookieStorage(sess2, r2, httptest.NewRecorder()))
	require.True(t, s.Restore())
	assert.Equal(t, ada, s.Current())
	assert.Equal(t, "tok-cookie", s.Credential())
}

func TestCookieStorageNonStringValueIsCorrupt(t *testing.T) {
	cs := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))
	r := httptest.NewRequest("GET", "/", nil)
	sess, err := cs.Get(r, "____jb")
	require.NoError(t, err)
	sess.Values[KeyToken] = "tok"
	sess.Values[KeyUser] = 42

	s := newStore(NewCookieStorage(sess, r, httptest.NewRecorder()))
	assert.False(t, s.Restore())
	_, ok := sess.Values[KeyUser]
	assert.False(t, ok)
}
