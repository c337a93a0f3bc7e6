package pmsGuard

import "time"

// TOTPCodeAt exposes code generation to the external test package.
func TOTPCodeAt(secret string, at time.Time, cfg TOTPConfig) string {
	raw, err := decodeTOTPSecret(secret)
	if err != nil {
		return ""
	}
	code, err := hotpCode(raw, at.Unix()/int64(cfg.Period), cfg.Digits, cfg.Algorithm)
	if err != nil {
		return ""
	}
	return code
}
