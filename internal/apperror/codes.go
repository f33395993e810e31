package apperror

// Code represents a unique error code for the application.
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Execution saga error codes
const (
	// Pre-flight gates
	CodeInvalidOpportunity   Code = "INVALID_OPPORTUNITY"
	CodeNotProfitable        Code = "NOT_PROFITABLE"
	CodeConfirmationRequired Code = "CONFIRMATION_REQUIRED"
	CodeSlippageExceeded     Code = "SLIPPAGE_EXCEEDED"

	// In-flight failures
	CodeRateLimitExceeded       Code = "RATE_LIMIT_EXCEEDED"
	CodeWaitTimeout             Code = "WAIT_TIMEOUT"
	CodeExternalOperationFailed Code = "EXTERNAL_OPERATION_FAILED"
)

// Exchange gateway error codes
const (
	CodeExchangeNotConfigured Code = "EXCHANGE_NOT_CONFIGURED"
	CodeExchangeAPIError      Code = "EXCHANGE_API_ERROR"
	CodeOrderRejected         Code = "ORDER_REJECTED"
	CodeWithdrawalRejected    Code = "WITHDRAWAL_REJECTED"
	CodeWithdrawalNotFound    Code = "WITHDRAWAL_NOT_FOUND"
	CodeDepositAddressFailed  Code = "DEPOSIT_ADDRESS_FAILED"
	CodeBalanceFetchFailed    Code = "BALANCE_FETCH_FAILED"
)

// Settlement chain error codes
const (
	CodeChainConnectionFailed   Code = "CHAIN_CONNECTION_FAILED"
	CodeChainRPCError           Code = "CHAIN_RPC_ERROR"
	CodeTransferSigningFailed   Code = "TRANSFER_SIGNING_FAILED"
	CodeTransferBroadcastFailed Code = "TRANSFER_BROADCAST_FAILED"
	CodeGasEstimationFailed     Code = "GAS_ESTIMATION_FAILED"
)

// Circuit breaker error codes
const (
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
