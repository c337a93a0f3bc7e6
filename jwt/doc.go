// Package jwt signs and verifies the session token carried in the staff
// session cookie. The token holds only the principal id; role and active
// status are always re-read from the principal store.
package jwt
