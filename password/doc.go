// Package password verifies staff credentials against stored hashes.
//
// New hashes are Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Hashes imported from the previous system are bcrypt ($2a$, $2b$, $2y$);
// [Verifier] accepts both and reports when a stored hash should be replaced.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other pmsGuard package.
//   - Log plaintext passwords.
package password
