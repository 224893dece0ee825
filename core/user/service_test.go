package user_test

import (
	"context"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/user"
	"github.com/deepweb1970/gestionchantier-sub001/tests"
)

func TestNewUser_Validate(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	testutil.CreateUser(t, env.UserRepo, "Existing", "existing", "existing@test.fr", "", user.RoleOuvrier, true)

	valid := func() user.NewUser {
		return user.NewUser{
			Name:            "Jeanne Martin",
			Username:        "  JMartin ",
			Email:           "jeanne@test.fr",
			Role:            user.RoleChefChantier,
			Password:        "Br1ck&Mortar",
			PasswordConfirm: "Br1ck&Mortar",
		}
	}

	tests := []struct {
		name      string
		edit      func(nu *user.NewUser)
		wantField string
		wantTag   string
	}{
		{name: "valid"},
		{name: "unknown role", edit: func(nu *user.NewUser) { nu.Role = "boss" }, wantField: "role", wantTag: "role"},
		{name: "no username nor email", edit: func(nu *user.NewUser) { nu.Username, nu.Email = "", "" }, wantField: "username", wantTag: "username_or_email"},
		{name: "bad username", edit: func(nu *user.NewUser) { nu.Username = "j.m" }, wantField: "username", wantTag: "alphanum_"},
		{name: "password mismatch", edit: func(nu *user.NewUser) { nu.PasswordConfirm = "other" }, wantField: "password_confirm", wantTag: "eqfield"},
		{name: "password too short", edit: func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "Ab1&", "Ab1&" }, wantField: "password", wantTag: "pwdminlen"},
		{name: "password with space", edit: func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "Ab1& efgh", "Ab1& efgh" }, wantField: "password", wantTag: "pwdnospace"},
		{name: "password all numeric", edit: func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "1234567890", "1234567890" }, wantField: "password", wantTag: "pwdnotallnum"},
		{name: "password too simple", edit: func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "abcdefgh1", "abcdefgh1" }, wantField: "password", wantTag: "pwdcplx"},
		{name: "password like the name", edit: func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "Jeanne-Martin1", "Jeanne-Martin1" }, wantField: "password", wantTag: "pwdtoosim"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			nu := valid()
			if tc.edit != nil {
				tc.edit(&nu)
			}
			err := nu.Validate(ctx, env.Validate, env.UserSvc)
			if tc.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, "jmartin", nu.Username)
				return
			}
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			var found bool
			for _, fe := range vErrs {
				if fe.Field() == tc.wantField && fe.Tag() == tc.wantTag {
					found = true
				}
			}
			assert.True(t, found, "want %s on %s, got %v", tc.wantTag, tc.wantField, vErrs)
		})
	}

	t.Run("username taken", func(t *testing.T) {
		nu := valid()
		nu.Username = "EXISTING"
		err := nu.Validate(ctx, env.Validate, env.UserSvc)
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, user.ErrUserExists, vErr.Err)
		assert.Len(t, vErr.Fields, 2)
	})
}

func TestService_CreateAndUpdate(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	usr, err := env.UserSvc.Create(ctx, user.NewUser{
		Name:     "Paul Durand",
		Username: "pdurand",
		Email:    "paul@test.fr",
		Role:     user.RoleComptable,
		Password: "Br1ck&Mortar",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.True(t, usr.Active())
	assert.NoError(t, usr.CheckPassword("Br1ck&Mortar"))

	got, err := env.UserSvc.GetByUsernameOrEmail(ctx, "  PAUL@test.fr ")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	inactive := false
	usr, err = env.UserSvc.Update(ctx, usr, user.UpdateUser{
		Name:     "Paul D.",
		Username: usr.Username,
		Email:    usr.Email,
		Role:     user.RoleManager,
		IsActive: &inactive,
		Password: "N3w&Secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "Paul D.", usr.Name)
	assert.Equal(t, user.RoleManager, usr.Role)
	assert.False(t, usr.Active())
	assert.NoError(t, usr.CheckPassword("N3w&Secret"))

	cnt, err := env.UserSvc.Delete(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cnt)
	_, err = env.UserSvc.GetByID(ctx, usr.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestService_PasswordReset(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, env.UserRepo, "Paul", "paul", "paul@test.fr", "Old&Pass1", user.RoleOuvrier, true)
	testutil.CreateUser(t, env.UserRepo, "Gone", "gone", "gone@test.fr", "Old&Pass1", user.RoleOuvrier, false)

	assert.True(t, core.IsNotFound(env.UserSvc.RequestPasswordReset(ctx, "nobody@test.fr")))
	assert.True(t, core.IsNotFound(env.UserSvc.RequestPasswordReset(ctx, "gone@test.fr")))
	assert.Empty(t, env.Mail.SentMessages())

	require.NoError(t, env.UserSvc.RequestPasswordReset(ctx, "PAUL@test.fr"))
	sent := env.Mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "paul@test.fr", sent[0].To[0].Address)

	url := sent[0].TemplateData.(map[string]interface{})["URL"].(string)
	parts := strings.Split(url, "/")
	require.GreaterOrEqual(t, len(parts), 2)
	uid, token := parts[len(parts)-2], parts[len(parts)-1]
	assert.Equal(t, user.EncodeUID(usr), uid)

	tests := []struct {
		name    string
		data    user.ResetUserPassword
		wantErr bool
	}{
		{name: "bad uid", data: user.ResetUserPassword{UID: "%%%", Token: token, Password: "N3w&Secret"}, wantErr: true},
		{name: "bad token", data: user.ResetUserPassword{UID: uid, Token: "abc-def", Password: "N3w&Secret"}, wantErr: true},
		{name: "valid", data: user.ResetUserPassword{UID: uid, Token: token, Password: "N3w&Secret"}},
		{name: "token is single use", data: user.ResetUserPassword{UID: uid, Token: token, Password: "Other&Pass2"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := env.UserSvc.ResetPassword(ctx, tc.data)
			if tc.wantErr {
				var vErr *core.ValidationError
				assert.ErrorAs(t, err, &vErr)
				return
			}
			require.NoError(t, err)
			got, err := env.UserSvc.GetByID(ctx, usr.ID)
			require.NoError(t, err)
			assert.NoError(t, got.CheckPassword(tc.data.Password))
		})
	}
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role string
		perm user.Permission
		want bool
	}{
		{user.RoleAdmin, user.WritePermission(user.Collection), true},
		{user.RoleAdmin, "anything:read", true},
		{user.RoleManager, user.WritePermission("factures"), true},
		{user.RoleManager, user.WritePermission(user.Collection), false},
		{user.RoleChefChantier, user.WritePermission("saisies_heures"), true},
		{user.RoleChefChantier, user.WritePermission("factures"), false},
		{user.RoleComptable, user.ReadPermission("chantiers"), true},
		{user.RoleComptable, user.WritePermission("chantiers"), false},
		{user.RoleOuvrier, user.PermReports, false},
		{user.RoleOuvrier, user.PermApproveHours, false},
		{user.RoleChefChantier, user.PermApproveHours, true},
		{user.RoleComptable, user.PermApproveHours, false},
		{user.RoleOuvrier, user.ReadPermission("chantiers"), true},
		{"unknown", user.ReadPermission("chantiers"), false},
	}
	for _, tc := range tests {
		t.Run(tc.role+" "+string(tc.perm), func(t *testing.T) {
			assert.Equal(t, tc.want, user.HasPermission(tc.role, tc.perm))
			assert.Equal(t, tc.want, user.User{Role: tc.role}.HasPermission(tc.perm))
		})
	}
	assert.Contains(t, user.Permissions(user.RoleOuvrier), user.WritePermission("saisies_heures"))
}
