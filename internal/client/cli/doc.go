// Package cli provides the lockbox command-line client.
//
// Commands:
//
//	lockbox login <email>            request a code, prompt for it, save the session
//	lockbox logout                   revoke the session on the server and forget it
//	lockbox whoami                   show the signed-in account
//	lockbox upload <path> [--type]   encrypt locally and upload
//	lockbox download <id> [-o dir]   download and decrypt
//	lockbox list                     list stored files
//	lockbox delete <id>              delete a file and its blob
//
// Files are encrypted and decrypted inside the client; the server only sees
// ciphertext. Global flags: --config, --server, --debug.
package cli
