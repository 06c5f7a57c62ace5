package errors

// NewResourceNotFoundError returns a new ErrNotFound error with kind
// KindResourceNotFound and the given message.
func NewResourceNotFoundError(message string, details Details) error {
	return Error{
		Code:    ErrNotFound,
		Kind:    KindResourceNotFound,
		Message: message,
		Details: details,
	}
}

// NewInternalError creates a new ErrInternal error with the given message.
func NewInternalError(message string, details Details) error {
	return Error{
		Code:    ErrInternal,
		Message: message,
		Details: details,
	}
}

// NewInternalErrorFromErr creates a new ErrInternal error with the given
// message and original error.
func NewInternalErrorFromErr(err error, message string, details Details) error {
	return Error{
		Code:    ErrInternal,
		Err:     err,
		Message: message,
		Details: details,
	}
}

// NewContextAbortedError creates a new ErrAborted error with kind
// KindContextAborted for the operation with the given name.
func NewContextAbortedError(operation string) error {
	return Error{
		Code:    ErrAborted,
		Kind:    KindContextAborted,
		Message: operation,
	}
}

// NewWrongStateError creates a new ErrBadRequest error with kind
// KindWrongState for an operation that is forbidden in the current session
// state.
func NewWrongStateError(operation string, currentState string, details Details) error {
	if details == nil {
		details = make(Details)
	}
	details["current_state"] = currentState
	return Error{
		Code:    ErrBadRequest,
		Kind:    KindWrongState,
		Message: operation,
		Details: details,
	}
}

// NewTeamNotFoundError creates a new ErrNotFound error with kind
// KindTeamNotFound for the team with the given id.
func NewTeamNotFoundError(teamID string) error {
	return Error{
		Code:    ErrNotFound,
		Kind:    KindTeamNotFound,
		Message: "team not found",
		Details: Details{"team_id": teamID},
	}
}

// NewQueryToSQLError creates a new ErrInternal error with kind KindDB for
// query building that failed.
func NewQueryToSQLError(err error, details Details) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDB,
		Err:     err,
		Message: "query to sql",
		Details: details,
	}
}

// NewExecQueryError creates a new ErrInternal error with kind KindDB for a
// query that failed to execute.
func NewExecQueryError(err error, query string, details Details) error {
	if details == nil {
		details = make(Details)
	}
	details["query"] = query
	return Error{
		Code:    ErrInternal,
		Kind:    KindDB,
		Err:     err,
		Message: "exec query",
		Details: details,
	}
}

// NewScanDBRowError creates a new ErrInternal error with kind KindDB for a
// scan of a result set row that failed.
func NewScanDBRowError(err error, query string) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDB,
		Err:     err,
		Message: "scan db row",
		Details: Details{"query": query},
	}
}

// NewScanSingleDBRowError creates a new ErrInternal error with kind KindDB for
// a row scan that failed.
func NewScanSingleDBRowError(message string, err error, details Details) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDB,
		Err:     err,
		Message: message,
		Details: details,
	}
}

// NewDBTxBeginError creates a new ErrInternal error with kind KindDB for a
// transaction that could not be begun.
func NewDBTxBeginError(err error) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDB,
		Err:     err,
		Message: "begin tx",
	}
}

// NewDBTxCommitError creates a new ErrInternal error with kind KindDB for a
// transaction that could not be committed.
func NewDBTxCommitError(err error) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDB,
		Err:     err,
		Message: "commit tx",
	}
}
