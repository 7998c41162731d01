// Package decipher runs the NWWM decryption pipeline for one container at a time:
// header parsing, key setup, chunked decryption with digest accumulation, and
// the final commit (keep output, optionally consume the source) or rollback
// (remove the output) decided by the digest verdict.
package decipher
