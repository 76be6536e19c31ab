package account

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"work", false},
		{"my-work_2", false},
		{strings.Repeat("a", 50), false},
		{strings.Repeat("a", 51), true},
		{"", true},
		{"has space", true},
		{"dot.ted", true},
		{"ünïcode", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidField) {
				t.Errorf("error %v does not wrap ErrInvalidField", err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"dev@example.com", false},
		{"first.last+tag@sub.example.io", false},
		{"no-at-sign.example.com", true},
		{"dev@localhost", true},
		{"dev@example.c", true},
		{"", true},
	}

	for _, tt := range tests {
		if err := ValidateEmail(tt.email); (err != nil) != tt.wantErr {
			t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
		}
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		username string
		wantErr  bool
	}{
		{"octocat", false},
		{"octo-cat", false},
		{"a", false},
		{strings.Repeat("a", 39), false},
		{strings.Repeat("a", 40), true},
		{"-octocat", true},
		{"octocat-", true},
		{"octo--cat", true},
		{"octo_cat", true},
		{"", true},
	}

	for _, tt := range tests {
		if err := ValidateUsername(tt.username); (err != nil) != tt.wantErr {
			t.Errorf("ValidateUsername(%q) error = %v, wantErr %v", tt.username, err, tt.wantErr)
		}
	}
}

func TestValidateOwner(t *testing.T) {
	tests := []struct {
		owner   string
		wantErr bool
	}{
		{"acme", false},
		{"jdoe_acme", false},
		{"acme-corp_shortcode", false},
		{"_acme", true},
		{"acme_", true},
		{"-acme", true},
		{"ac me", true},
		{"", true},
	}

	for _, tt := range tests {
		if err := ValidateOwner(tt.owner); (err != nil) != tt.wantErr {
			t.Errorf("ValidateOwner(%q) error = %v, wantErr %v", tt.owner, err, tt.wantErr)
		}
	}
}

func TestFieldError(t *testing.T) {
	err := ValidateEmail("nope")

	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("error type = %T, want *FieldError", err)
	}
	if fe.Field != "email" || fe.Value != "nope" {
		t.Errorf("FieldError = %+v", fe)
	}
	if !strings.Contains(err.Error(), `invalid email "nope"`) {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestAccountHelpers(t *testing.T) {
	a := Account{Name: "work", SSHKeyPath: "/k/id_work"}

	if a.HostAlias() != "github.com-work" {
		t.Errorf("HostAlias() = %q", a.HostAlias())
	}
	if a.PublicKeyPath() != "/k/id_work.pub" {
		t.Errorf("PublicKeyPath() = %q", a.PublicKeyPath())
	}
	if a.GitUserName() != "work" {
		t.Errorf("GitUserName() without username = %q, want alias", a.GitUserName())
	}
	a.GitHubUsername = "octocat"
	if a.GitUserName() != "octocat" {
		t.Errorf("GitUserName() = %q, want octocat", a.GitUserName())
	}
}
