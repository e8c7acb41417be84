// Package auth provides API key management and security audit logging
// for CoachDesk.
//
// # API Keys
//
// Keys are random 256-bit credentials with a recognizable prefix:
//
//	cdsk_[base64url(32 random bytes)]
//
// Only the SHA-256 hash of a key is stored. The raw key is returned
// exactly once at creation time:
//
//	store := auth.NewKeyStore(db)
//	key, rawKey, err := store.CreateKey(ctx, userID, orgID, "CI pipeline", nil)
//	// rawKey: cdsk_xxx — show to the caller, then forget it
//
// Validation resolves the presented key to its record and rejects
// revoked or expired keys:
//
//	key, err := store.ValidateKey(ctx, rawKey)
//	switch {
//	case errors.Is(err, auth.ErrKeyNotFound),
//		errors.Is(err, auth.ErrKeyRevoked),
//		errors.Is(err, auth.ErrKeyExpired):
//		// 401
//	}
//
// Successful validation stamps last_used_at. Revocation is permanent;
// CleanupExpiredKeys sweeps keys past their expiry.
//
// # Audit Logging
//
// AuditLogger records security-relevant actions (role changes, client
// assignment changes, key lifecycle, auth failures) to the audit_log
// table:
//
//	logger := auth.NewAuditLogger(db)
//	logger.RecordFromRequest(r, orgID, actorID,
//		auth.ActionRoleChange, "user", targetUserID, auth.StatusSuccess, nil)
//
// # Related Packages
//
//   - pkg/rbac: role and permission resolution
//   - pkg/middleware: HTTP authentication middleware
package auth
