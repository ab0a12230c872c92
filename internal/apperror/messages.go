package apperror

// messages maps error codes to human-readable messages.
// Market maker rejection messages are protocol reasons sent verbatim to clients.
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "too many requests",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// State chain RPC
	CodeStateChainConnectionFailed: "Failed to connect to state chain node",
	CodeStateChainRPCError:         "State chain RPC call failed",
	CodeUnsupportedRuntime:         "Unsupported state chain runtime version",
	CodeBalanceFetchFailed:         "Failed to fetch account balances",

	// Backing store
	CodeStoreQueryFailed: "Backing store query failed",

	// Market maker handshake
	CodeInvalidAuth:          "invalid auth",
	CodeInvalidTimestamp:     "invalid timestamp",
	CodeMarketMakerNotFound:  "market maker not found",
	CodeInvalidPublicKey:     "invalid public key",
	CodeInvalidSignature:     "invalid signature",
	CodeMarketMakerMessage:   "invalid message",
	CodeMarketMakerRateLimit: "too many messages",

	// WebSocket errors
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	// Quoting
	CodeInvalidLeg:            "invalid leg",
	CodeInvalidAsset:          "invalid asset",
	CodeInvalidAmount:         "invalid amount",
	CodeInsufficientLiquidity: "insufficient liquidity",
	CodePriceUnavailable:      "asset price unavailable",
	CodeDCAUnavailable:        "dca quote unavailable",

	// Admission
	CodeBlacklisted:   "too many requests",
	CodeInvalidAPIKey: "invalid api key",

	// Circuit breaker errors
	CodeCircuitOpen: "Circuit breaker is open",
}
