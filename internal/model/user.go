package model

// User is a requesting identity. The 128-bit passkey is stored split in two
// signed 64-bit halves (the storage engine has no unsigned 64-bit type); the
// combined value is only ever materialized transiently while rendering an
// announce URL and is never persisted in combined form.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasskeyUpper int64  `json:"-"`
	PasskeyLower int64  `json:"-"`
}
