package domain

// Status is the outcome class of a token validation.
type Status int

const (
	// StatusValid means the token passed signature and claim checks.
	StatusValid Status = iota

	// StatusNeedKeyRefresh means the token's kid is not in the current key
	// snapshot. It is not a failure: the caller should refresh the keys and
	// retry the validation exactly once.
	StatusNeedKeyRefresh

	// StatusInvalid means the token was rejected.
	StatusInvalid
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusNeedKeyRefresh:
		return "need_key_refresh"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Reason identifies why a token was rejected.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonMalformedToken       Reason = "malformed_token"
	ReasonUnsupportedAlgorithm Reason = "unsupported_algorithm"
	ReasonSignatureInvalid     Reason = "signature_invalid"
	ReasonClaimExpired         Reason = "claim_expired"
	ReasonClaimNotYetValid     Reason = "claim_not_yet_valid"
	ReasonIssuerMismatch       Reason = "issuer_mismatch"
	ReasonPolicyMismatch       Reason = "policy_mismatch"
	ReasonAudienceMismatch     Reason = "audience_mismatch"

	// ReasonUnknownKeyID is set by callers when a key refresh did not
	// resolve the token's kid.
	ReasonUnknownKeyID Reason = "unknown_key_id"

	// ReasonClaimsRejected is set when a tenant claim assertion rule
	// does not hold.
	ReasonClaimsRejected Reason = "claims_rejected"
)

// Result is the three-way outcome of validating an access token. Claim-check
// failures are carried as data in Reason, never as Go errors.
type Result struct {
	Status Status
	Reason Reason

	// Claims is populated only when Status is StatusValid.
	Claims ClaimSet

	// Cached is true when the result was served from the claims cache.
	Cached bool
}

// Valid builds a successful result.
func Valid(claims ClaimSet) Result {
	return Result{Status: StatusValid, Claims: claims}
}

// NeedKeyRefresh builds a key-miss result.
func NeedKeyRefresh() Result {
	return Result{Status: StatusNeedKeyRefresh}
}

// Invalid builds a rejection result with the given reason.
func Invalid(reason Reason) Result {
	return Result{Status: StatusInvalid, Reason: reason}
}

// IsValid reports whether the token passed all checks.
func (r Result) IsValid() bool {
	return r.Status == StatusValid
}
