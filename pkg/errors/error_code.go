package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Artifact errors (100-199): declared files or directories absent
	ErrCodeStrategyFileNotFound ErrorCode = 100
	ErrCodeCardNotFound         ErrorCode = 101
	ErrCodeLogDirNotFound       ErrorCode = 102
	ErrCodeTradeLogNotFound     ErrorCode = 103
	ErrCodeAuditLogNotFound     ErrorCode = 104
	ErrCodeSpecNotFound         ErrorCode = 105

	// Schema errors (200-299): output is not the required tabular shape
	ErrCodeNotTabular         ErrorCode = 200
	ErrCodeMissingColumn      ErrorCode = 201
	ErrCodeInvalidCard        ErrorCode = 202
	ErrCodeInvalidParameter   ErrorCode = 203
	ErrCodeNestedParameter    ErrorCode = 204
	ErrCodeInvalidResultShape ErrorCode = 205

	// Domain-inapplicable errors (300-399)
	ErrCodeMultiAssetRequired ErrorCode = 300

	// Runtime errors (400-499): hosted code failures
	ErrCodeEntrySymbolNotFound ErrorCode = 400
	ErrCodeStrategyInitFailed  ErrorCode = 401
	ErrCodeStrategyRunFailed   ErrorCode = 402
	ErrCodeUnsupportedStrategy ErrorCode = 403
	ErrCodeVersionMismatch     ErrorCode = 404
	ErrCodeGuestABIError       ErrorCode = 405

	// Determinism errors (500-599)
	ErrCodeNonDeterministic ErrorCode = 500

	// Constraint errors (600-699)
	ErrCodeConstraintViolated ErrorCode = 600

	// Data errors (700-799): market data loading and validation
	ErrCodeDataNotFound       ErrorCode = 700
	ErrCodeDataQueryFailed    ErrorCode = 701
	ErrCodeMarketNotFound     ErrorCode = 702
	ErrCodeSymbolNotFound     ErrorCode = 703
	ErrCodeDataQualityFailed  ErrorCode = 704
	ErrCodeInvalidSplitConfig ErrorCode = 705
)
