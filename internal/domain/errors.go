package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Configuration errors (fatal, pre-runtime)
	ErrInvalidPort        = errors.New("port must be in 1..65535")
	ErrInvalidFanout      = errors.New("fanout must be >= 0")
	ErrInvalidTTL         = errors.New("ttl must be >= 0")
	ErrInvalidPeerLimit   = errors.New("peer_limit must be >= 1")
	ErrInvalidInterval    = errors.New("interval must be > 0")
	ErrInvalidIdsMaxIhave = errors.New("ids_max_ihave must be >= 0")
	ErrInvalidKPow        = errors.New("k_pow must be >= 0")
	ErrInvalidBootstrap   = errors.New("bootstrap_addr must be ip:port")

	// Peer table errors (policy outcomes, not failures)
	ErrPeerLimitReject = errors.New("peer_limit_reject")
	ErrSelfAddr        = errors.New("address equals self_addr")
	ErrDuplicateAddr   = errors.New("address already present")
	ErrUnknownPeer     = errors.New("no such peer")

	// Envelope decode errors
	ErrInvalidJSON        = errors.New("invalid_json")
	ErrInvalidSchema      = errors.New("invalid_schema")
	ErrUnsupportedVersion = errors.New("unsupported_version")
	ErrUnknownType        = errors.New("unknown_type")
	ErrPayloadInvalid     = errors.New("payload_invalid")

	// HELLO admission
	ErrPoWMissing          = errors.New("pow_missing")
	ErrPoWInvalid          = errors.New("pow_invalid")
	ErrCapabilitiesInvalid = errors.New("capabilities_invalid")
)
