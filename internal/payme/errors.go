package payme

// Protocol state codes.
const (
	StatePending       = 1
	StateCompleted     = 2
	StateCancelled     = -1
	StateCancelledPaid = -2
)

// Reason tags reported in the error data member. The vocabulary is closed;
// the processor's sandbox asserts on it.
const (
	ReasonMissingFields         = "missing_fields"
	ReasonInvalidAccountFormat  = "invalid_account_format"
	ReasonMixedAccountFormat    = "mixed_account_format"
	ReasonInvalidPhoneNumber    = "invalid_phone_number"
	ReasonInvalidTariffID       = "invalid_tariff_id"
	ReasonInvalidMonthCount     = "invalid_month_count"
	ReasonInvalidServiceID      = "invalid_service_id"
	ReasonInvalidDaysCount      = "invalid_days_count"
	ReasonTariffNotFound        = "tariff_not_found"
	ReasonServiceNotFound       = "service_not_found"
	ReasonPaymentNotFound       = "payment_not_found"
	ReasonAlreadyPaid           = "already_paid"
	ReasonCancelled             = "cancelled"
	ReasonAccountBeingProcessed = "account_being_processed"
)

// ErrorInfo describes a processor-defined error. The message strings are part
// of the external contract and must be returned verbatim.
type ErrorInfo struct {
	Name    string
	Code    int
	Message map[string]string
}

var (
	ErrInvalidRequest = ErrorInfo{
		Name: "InvalidRequest",
		Code: -32600,
		Message: map[string]string{
			"uz": "So'rov noto'g'ri",
			"ru": "Неверный запрос",
			"en": "Invalid request",
		},
	}
	ErrMethodNotFound = ErrorInfo{
		Name: "MethodNotFound",
		Code: -32601,
		Message: map[string]string{
			"uz": "Metod topilmadi",
			"ru": "Метод не найден",
			"en": "Method not found",
		},
	}
	ErrInvalidParams = ErrorInfo{
		Name: "InvalidParams",
		Code: -32602,
		Message: map[string]string{
			"uz": "So'rov parametrlari noto'g'ri",
			"ru": "Неверные параметры запроса",
			"en": "Invalid request parameters",
		},
	}
	ErrInternal = ErrorInfo{
		Name: "InternalError",
		Code: -32603,
		Message: map[string]string{
			"uz": "Serverda ichki xatolik",
			"ru": "Внутренняя ошибка сервера",
			"en": "Internal server error",
		},
	}
	ErrInvalidAuthorization = ErrorInfo{
		Name: "InvalidAuthorization",
		Code: -32504,
		Message: map[string]string{
			"uz": "Avtorizatsiya yaroqsiz",
			"ru": "Авторизация недействительна",
			"en": "Authorization invalid",
		},
	}
	ErrInvalidAmount = ErrorInfo{
		Name: "InvalidAmount",
		Code: -31001,
		Message: map[string]string{
			"uz": "Noto'g'ri summa",
			"ru": "Недопустимая сумма",
			"en": "Invalid amount",
		},
	}
	ErrTransactionNotFound = ErrorInfo{
		Name: "TransactionNotFound",
		Code: -31003,
		Message: map[string]string{
			"uz": "Tranzaktsiya topilmadi",
			"ru": "Транзакция не найдена",
			"en": "Transaction not found",
		},
	}
	ErrOrderAlreadyPaid = ErrorInfo{
		Name: "OrderAlreadyPaid",
		Code: -31007,
		Message: map[string]string{
			"uz": "Buyurtma uchun to'lov qilingan",
			"ru": "Заказ уже оплачен",
			"en": "Order already paid",
		},
	}
	ErrCantDoOperation = ErrorInfo{
		Name: "CantDoOperation",
		Code: -31008,
		Message: map[string]string{
			"uz": "Biz operatsiyani bajara olmaymiz",
			"ru": "Мы не можем сделать операцию",
			"en": "We can't do operation",
		},
	}
	ErrInvalidAccount = ErrorInfo{
		Name: "InvalidAccount",
		Code: -31050,
		Message: map[string]string{
			"uz": "Hisob ma'lumotlari noto'g'ri",
			"ru": "Неверные данные аккаунта",
			"en": "Invalid account details",
		},
	}
)

// Error is a protocol-level failure. The dispatcher serializes it into the
// JSON-RPC error member; anything that is not an *Error becomes -32603.
type Error struct {
	Info ErrorInfo
	ID   any
	Data any
}

func (e *Error) Error() string {
	return e.Info.Name
}

// RPCBody is the complete JSON-RPC error response for e.
func (e *Error) RPCBody() map[string]any {
	return map[string]any{
		"id": e.ID,
		"error": map[string]any{
			"code": e.Info.Code,
			"message": map[string]string{
				"uz": e.Info.Message["uz"],
				"ru": e.Info.Message["ru"],
				"en": e.Info.Message["en"],
			},
			"data": e.Data,
		},
	}
}

func newError(info ErrorInfo, id any) *Error {
	return &Error{Info: info, ID: id}
}

func accountError(id any, reason string) *Error {
	return &Error{Info: ErrInvalidAccount, ID: id, Data: map[string]any{"reason": reason}}
}

func stateError(id any, reason string) *Error {
	return &Error{Info: ErrCantDoOperation, ID: id, Data: map[string]any{"reason": reason}}
}

func amountError(id any, expected, received int64) *Error {
	return &Error{Info: ErrInvalidAmount, ID: id, Data: map[string]any{"expected": expected, "received": received}}
}
