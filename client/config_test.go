package client

import "testing"

func TestConfig_Validate_RejectsShortSecretKey(t *testing.T) {
	c := Config{SecretKey: "too-short"}
	if err := c.Validate(); err == nil {
		t.Error("Validate() error = nil, want error for a short secret key")
	}
}

func TestConfig_Validate_AcceptsLongSecretKey(t *testing.T) {
	c := Config{SecretKey: string(make([]byte, secretKeyMinLength))}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}
