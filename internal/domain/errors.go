package domain

import "fmt"

// FetchErrorKind classifies upstream API failures.
type FetchErrorKind string

const (
	FetchNetworkFailure  FetchErrorKind = "network_failure"
	FetchInvalidResponse FetchErrorKind = "invalid_response"
	FetchEmptyResult     FetchErrorKind = "empty_result"
)

// FetchError describes a failed API call for one country.
type FetchError struct {
	Kind    FetchErrorKind
	Country string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s (%s): %v", e.Country, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s (%s)", e.Country, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transient reports whether retrying the same request later could succeed.
// Permanent kinds mean the country itself has no usable data.
func (e *FetchError) Transient() bool { return e.Kind == FetchNetworkFailure }

// ValidationErrorKind classifies bad operator input.
type ValidationErrorKind string

const (
	ValidationInvalidDateRange ValidationErrorKind = "invalid_date_range"
	ValidationUnknownCountry   ValidationErrorKind = "unknown_country"
	ValidationMissingParameter ValidationErrorKind = "missing_parameter"
)

// ValidationError rejects an operation before any external call is made,
// except UnknownCountry which the API reports back for a name it cannot map.
type ValidationError struct {
	Kind ValidationErrorKind
	Msg  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation (%s): %s", e.Kind, e.Msg)
}

// StorageErrorKind classifies repository failures.
type StorageErrorKind string

const (
	StorageConnectionFailure   StorageErrorKind = "connection_failure"
	StorageConstraintViolation StorageErrorKind = "constraint_violation"
	StorageNotFound            StorageErrorKind = "not_found"
)

// StorageError wraps a failed storage operation. It always aborts the current
// command; committed records are never affected.
type StorageError struct {
	Kind StorageErrorKind
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage %s (%s): %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("storage %s (%s)", e.Op, e.Kind)
}

func (e *StorageError) Unwrap() error { return e.Err }

// QueryErrorKind classifies read-path catalog failures.
type QueryErrorKind string

const (
	QueryUnknownName      QueryErrorKind = "unknown_query_name"
	QueryMissingParameter QueryErrorKind = "missing_parameter"
)

// QueryError rejects a query request before it reaches storage.
type QueryError struct {
	Kind  QueryErrorKind
	Name  string
	Param string
}

func (e *QueryError) Error() string {
	if e.Kind == QueryMissingParameter {
		return fmt.Sprintf("query %s: missing parameter %q", e.Name, e.Param)
	}
	return fmt.Sprintf("query %s: unknown query name", e.Name)
}
