package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/user"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	conf := core.NewTestConfig()

	tests := []struct {
		name  string
		debug bool
		log   func(l *RollbarLogger)
		want  []string
		skip  []string
	}{
		{
			name: "error with args",
			log: func(l *RollbarLogger) {
				l.Error("saving chantier", errors.New("boom"), map[string]interface{}{"id": "42"})
			},
			want: []string{"ERROR: saving chantier", "boom", "map[id:42]"},
		},
		{
			name: "user",
			log: func(l *RollbarLogger) {
				l.Warn("forbidden", user.User{ID: "u1", Role: user.RoleOuvrier, PasswordHash: []byte("secret")})
			},
			want: []string{"WARN: forbidden", "user: u1 (ouvrier)"},
			skip: []string{"secret"},
		},
		{
			name: "debug disabled",
			log:  func(l *RollbarLogger) { l.Debug("hidden") },
			skip: []string{"hidden"},
		},
		{
			name:  "debug enabled",
			debug: true,
			log:   func(l *RollbarLogger) { l.Debug("shown") },
			want:  []string{"DEBUG: shown"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf.Reset()
			conf.Debug = tc.debug
			l := NewRollbarLogger(log.New(&buf, "", 0), conf)
			tc.log(l)

			out := buf.String()
			for _, s := range tc.want {
				assert.Contains(t, out, s)
			}
			for _, s := range tc.skip {
				assert.NotContains(t, out, s)
			}
		})
	}
}
