package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",

	// System errors
	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	// Execution saga
	CodeInvalidOpportunity:      "Opportunity has missing or zero prices",
	CodeNotProfitable:           "Opportunity is not profitable after fees",
	CodeConfirmationRequired:    "Live execution requires explicit confirmation",
	CodeSlippageExceeded:        "Price moved beyond slippage tolerance",
	CodeRateLimitExceeded:       "Rate limit exceeded",
	CodeWaitTimeout:             "Wait exceeded its timeout",
	CodeExternalOperationFailed: "External operation failed",

	// Exchange gateway
	CodeExchangeNotConfigured: "Exchange is not configured",
	CodeExchangeAPIError:      "Exchange API error",
	CodeOrderRejected:         "Order rejected by exchange",
	CodeWithdrawalRejected:    "Withdrawal rejected by exchange",
	CodeWithdrawalNotFound:    "Withdrawal not found on exchange",
	CodeDepositAddressFailed:  "Failed to fetch deposit address",
	CodeBalanceFetchFailed:    "Failed to fetch balance",

	// Settlement chain
	CodeChainConnectionFailed:   "Failed to connect to settlement chain",
	CodeChainRPCError:           "Settlement chain RPC call failed",
	CodeTransferSigningFailed:   "Failed to sign transfer",
	CodeTransferBroadcastFailed: "Failed to broadcast transfer",
	CodeGasEstimationFailed:     "Gas estimation failed",

	// Circuit breaker
	CodeCircuitOpen: "Circuit breaker is open",
}
