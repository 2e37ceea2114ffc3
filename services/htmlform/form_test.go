package htmlform

import (
	"strings"
	"testing"
)

const signinPage = `<!DOCTYPE html>
<html><body>
<form id="other_form" method="post">
  <input name="decoy" value="nope">
</form>
<form id="new_signin" method="post" action="/signin">
  <input type="hidden" name="authenticity_token" value="csrf123">
  <input type="hidden" name="client_id" value="android-app">
  <input type="email" name="signin[email]">
  <input type="password" name="signin[password]">
  <input type="submit" value="Sign in">
</form>
</body></html>`

func TestInputs_HarvestsNamedForm(t *testing.T) {
	values, err := Inputs(strings.NewReader(signinPage), "new_signin")
	if err != nil {
		t.Fatalf("inputs: %v", err)
	}

	if got := values.Get("authenticity_token"); got != "csrf123" {
		t.Errorf("expected hidden csrf field, got %q", got)
	}
	if got := values.Get("client_id"); got != "android-app" {
		t.Errorf("expected hidden client field, got %q", got)
	}
	if _, ok := values["signin[email]"]; !ok {
		t.Error("expected empty email input to be present")
	}
	if _, ok := values["decoy"]; ok {
		t.Error("inputs from other forms must not leak in")
	}
}

func TestInputs_MissingForm(t *testing.T) {
	if _, err := Inputs(strings.NewReader(signinPage), "no_such_form"); err == nil {
		t.Error("expected an error for a missing form")
	}
}

func TestInputs_ToleratesSloppyMarkup(t *testing.T) {
	page := `<form id="f"><input name="a" value="1"><p><input name="b" value="2">`
	values, err := Inputs(strings.NewReader(page), "f")
	if err != nil {
		t.Fatalf("inputs: %v", err)
	}
	if values.Get("a") != "1" || values.Get("b") != "2" {
		t.Errorf("expected both inputs, got %v", values)
	}
}
