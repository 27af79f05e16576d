// Package token issues the signed JWTs that expose account data to client
// applications.
package token
