package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/auth"
)

// TestCommandTree verifies the CLI command hierarchy is correct.
func TestCommandTree(t *testing.T) {
	root := Root()

	expectedTopLevel := []string{"mcp", "seed", "serve", "sheet", "token", "version"}
	gotTopLevel := childNames(root)
	slices.Sort(gotTopLevel)
	assert.Equal(t, expectedTopLevel, gotTopLevel)

	expectedSubcmds := map[string][]string{
		"token": {"issue"},
		"sheet": {"rows"},
	}
	for _, cmd := range root.Commands() {
		expected, ok := expectedSubcmds[cmd.Name()]
		if !ok {
			continue
		}
		assert.Equal(t, expected, childNames(cmd), "%s subcommands", cmd.Name())
	}
}

// TestCommandsHaveRequiredMetadata verifies every command has Use and Short fields set.
func TestCommandsHaveRequiredMetadata(t *testing.T) {
	root := Root()

	var walk func(cmd *cobra.Command, path string)
	walk = func(cmd *cobra.Command, path string) {
		if cmd.Use == "" {
			t.Errorf("%s: Use field is empty", path)
		}
		if cmd.Short == "" {
			t.Errorf("%s: Short field is empty", path)
		}
		for _, child := range cmd.Commands() {
			walk(child, path+"/"+child.Name())
		}
	}

	for _, cmd := range root.Commands() {
		walk(cmd, "allowance/"+cmd.Name())
	}
}

func TestFlags(t *testing.T) {
	root := Root()

	tests := []struct {
		path     []string
		flag     string
		defValue string
	}{
		{[]string{"token", "issue"}, "email", ""},
		{[]string{"token", "issue"}, "google-id", ""},
		{[]string{"token", "issue"}, "ttl", "0s"},
		{[]string{"sheet", "rows"}, "output", "table"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v/%s", tt.path, tt.flag), func(t *testing.T) {
			cmd := root
			for _, name := range tt.path {
				cmd = findSubcommand(cmd, name)
				require.NotNil(t, cmd, "command %q not found", name)
			}
			f := cmd.Flags().Lookup(tt.flag)
			require.NotNil(t, f, "flag --%s not found", tt.flag)
			assert.Equal(t, tt.defValue, f.DefValue)
		})
	}
}

// TestArgsValidators verifies that commands enforce correct argument counts.
func TestArgsValidators(t *testing.T) {
	root := Root()

	tests := []struct {
		command string
		args    int
		wantErr bool
	}{
		{"serve", 0, false},
		{"serve", 1, true},
		{"mcp", 0, false},
		{"mcp", 1, true},
		{"seed", 1, false},
		{"seed", 0, true},
		{"seed", 2, true},
		{"version", 0, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.command, tt.args), func(t *testing.T) {
			cmd := findSubcommand(root, tt.command)
			require.NotNil(t, cmd)
			err := cmd.Args(cmd, make([]string, tt.args))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTokenIssue(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "cli-test-secret")

	var out bytes.Buffer
	root := Root()
	root.SetOut(&out)
	root.SetArgs([]string{"token", "issue", "--email", "parent@example.com", "--google-id", "g-42", "--ttl", "1h"})
	require.NoError(t, root.Execute())

	var token auth.TokenResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &token))
	assert.Equal(t, "bearer", token.TokenType)

	tokens, err := auth.NewTokenManager("cli-test-secret")
	require.NoError(t, err)
	claims, err := tokens.VerifyToken(context.Background(), token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "parent@example.com", claims.Email())
	assert.Equal(t, "g-42", claims.GoogleID)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := Root()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Version: ")
}

func childNames(cmd *cobra.Command) []string {
	var names []string
	for _, c := range cmd.Commands() {
		// added by cobra on first Execute
		if c.Name() == "help" || c.Name() == "completion" {
			continue
		}
		names = append(names, c.Name())
	}
	return names
}

func findSubcommand(parent *cobra.Command, name string) *cobra.Command {
	for _, c := range parent.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}
