package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Quoting-specific error codes
const (
	// State chain RPC
	CodeStateChainConnectionFailed Code = "STATE_CHAIN_CONNECTION_FAILED"
	CodeStateChainRPCError         Code = "STATE_CHAIN_RPC_ERROR"
	CodeUnsupportedRuntime         Code = "UNSUPPORTED_RUNTIME_VERSION"
	CodeBalanceFetchFailed         Code = "BALANCE_FETCH_FAILED"

	// Backing store
	CodeStoreQueryFailed Code = "STORE_QUERY_FAILED"

	// Market maker handshake, one code per rejection reason
	CodeInvalidAuth          Code = "INVALID_AUTH"
	CodeInvalidTimestamp     Code = "INVALID_TIMESTAMP"
	CodeMarketMakerNotFound  Code = "MARKET_MAKER_NOT_FOUND"
	CodeInvalidPublicKey     Code = "INVALID_PUBLIC_KEY"
	CodeInvalidSignature     Code = "INVALID_SIGNATURE"
	CodeMarketMakerMessage   Code = "INVALID_MARKET_MAKER_MESSAGE"
	CodeMarketMakerRateLimit Code = "MARKET_MAKER_RATE_LIMITED"

	// WebSocket errors
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	// Quoting
	CodeInvalidLeg            Code = "INVALID_LEG"
	CodeInvalidAsset          Code = "INVALID_ASSET"
	CodeInvalidAmount         Code = "INVALID_AMOUNT"
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"
	CodePriceUnavailable      Code = "PRICE_UNAVAILABLE"
	CodeDCAUnavailable        Code = "DCA_UNAVAILABLE"

	// Admission
	CodeBlacklisted   Code = "BLACKLISTED"
	CodeInvalidAPIKey Code = "INVALID_API_KEY"

	// Circuit breaker errors
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
