/*
Package ninep provides the shared types used by a 9P2000 client, server,
file-server backend, and authentication coprocessor.

Subpackages implement each layer: proto (wire codec), dial (dial strings),
client and server (session engines), fsfile (host + in-memory file server
backend), and auth/authrpc/authfs/authcrypto (the authentication
coprocessor).
*/
package ninep
