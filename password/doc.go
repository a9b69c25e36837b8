// Package password implements argon2id password hashing and verification.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher.NeedsRehash] reports hashes produced with weaker parameters so callers
// can re-hash after the next successful login.
//
// # Decoy verification
//
// [Hasher.VerifyDecoy] performs the same key derivation as [Hasher.Verify]
// against a hash generated when the Hasher was built. Login paths call it for
// unknown identifiers so that they cost the same as a wrong password.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other loginguard package.
//   - Log plaintext passwords.
package password
