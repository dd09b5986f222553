package sqlerr

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/deppfellow/go-invoices/internal/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var uniqueKeyPattern = regexp.MustCompile(`_([^_]+)_(?:key|ukey)$`)

// ErrCode returns the Code of the first *Error in err's chain, or Other.
func ErrCode(err error) Code {
	var sqlErr *Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return MapCode(pgErr.Code)
	}
	return Other
}

// ConvertPgError normalizes a *pgconn.PgError.
func ConvertPgError(src *pgconn.PgError) *Error {
	return &Error{
		Code:           MapCode(src.Code),
		Severity:       MapSeverity(src.Severity),
		DatabaseCode:   src.Code,
		Message:        src.Message,
		SchemaName:     src.SchemaName,
		TableName:      src.TableName,
		ColumnName:     src.ColumnName,
		DataTypeName:   src.DataTypeName,
		ConstraintName: src.ConstraintName,
		driverErr:      src,
	}
}

// generateErrorCode builds <DOMAIN>_<ACTION>, e.g. invoices + CheckViolation
// gives INVOICE_INVALID. Foreign keys name the referenced entity instead of
// the table, so a missing customer yields CUSTOMER_NOT_FOUND.
func generateErrorCode(sqlErr *Error) string {
	domain := singular(strings.ToUpper(sqlErr.TableName))
	if domain == "" {
		domain = "RECORD"
	}
	if sqlErr.Code == ForeignKeyViolation {
		if ref := referencedEntity(sqlErr); ref != "" {
			domain = strings.ToUpper(ref)
		}
	}

	action := "ERROR"
	switch sqlErr.Code {
	case ForeignKeyViolation:
		action = "NOT_FOUND"
	case UniqueViolation:
		action = "ALREADY_EXISTS"
	case NotNullViolation:
		action = "REQUIRED"
	case CheckViolation, InvalidTextRepresentation:
		action = "INVALID"
	}

	return fmt.Sprintf("%s_%s", domain, action)
}

// referencedEntity infers the referenced entity of a foreign key from the
// column ("customer_id") or the constraint ("invoices_customer_id_fkey").
func referencedEntity(sqlErr *Error) string {
	column := strings.ToLower(sqlErr.ColumnName)
	if column == "" && strings.HasSuffix(sqlErr.ConstraintName, "_fkey") {
		name := strings.TrimSuffix(sqlErr.ConstraintName, "_fkey")
		name = strings.TrimPrefix(name, strings.ToLower(sqlErr.TableName)+"_")
		column = name
	}
	if strings.HasSuffix(column, "_id") {
		return strings.TrimSuffix(column, "_id")
	}
	return ""
}

func userMessage(sqlErr *Error) string {
	entity := entityName(sqlErr.TableName, sqlErr.ColumnName)

	switch sqlErr.Code {
	case ForeignKeyViolation:
		if ref := referencedEntity(sqlErr); ref != "" {
			entity = humanize(ref)
		}
		return fmt.Sprintf("The referenced %s does not exist", entity)

	case UniqueViolation:
		return fmt.Sprintf("A %s with this identifier already exists", entity)

	case NotNullViolation:
		field := humanize(sqlErr.ColumnName)
		if field == "" {
			field = "field"
		}
		return fmt.Sprintf("The %s is required", field)

	case CheckViolation:
		if field := humanize(sqlErr.ColumnName); field != "" {
			return fmt.Sprintf("The %s value does not meet required conditions", field)
		}
		return "One or more values do not meet required conditions"

	case InvalidTextRepresentation:
		return "One or more values have an invalid format"

	default:
		return "An error occurred while processing your request"
	}
}

// entityName prefers a foreign key column ("customer_id" -> "Customer"),
// then the singular table name, then "record".
func entityName(tableName, columnName string) string {
	column := strings.ToLower(columnName)
	if strings.HasSuffix(column, "_id") {
		return humanize(strings.TrimSuffix(column, "_id"))
	}
	if tableName != "" {
		return humanize(singular(tableName))
	}
	return "record"
}

func singular(name string) string {
	if len(name) > 1 && strings.HasSuffix(strings.ToLower(name), "s") {
		return name[:len(name)-1]
	}
	return name
}

// humanize turns "customer_id" into "Customer Id".
func humanize(text string) string {
	if text == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(text, "_", " "))
}

// uniqueViolationColumn reads the column out of "unique_<table>_<column>" or
// "<table>_<column>_key" constraint names.
func uniqueViolationColumn(constraintName string) string {
	if constraintName == "" {
		return ""
	}

	if strings.HasPrefix(constraintName, "unique_") {
		parts := strings.Split(constraintName, "_")
		if len(parts) >= 3 {
			return parts[len(parts)-1]
		}
	}

	if matches := uniqueKeyPattern.FindStringSubmatch(constraintName); len(matches) > 1 {
		return matches[1]
	}
	return ""
}

// HandleError converts a database error into an *errs.HTTPError.
//
// HTTP errors pass through untouched. Postgres errors are mapped by SQLSTATE,
// "no rows" becomes a 404 and everything else a generic 500.
func HandleError(err error) error {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		sqlErr := ConvertPgError(pgErr)
		code := generateErrorCode(sqlErr)
		message := userMessage(sqlErr)

		switch sqlErr.Code {
		case ForeignKeyViolation:
			return errs.NewBadRequestError(message, true, &code, nil, nil)

		case UniqueViolation:
			if column := uniqueViolationColumn(sqlErr.ConstraintName); column != "" {
				message = strings.ReplaceAll(message, "identifier", humanize(column))
			}
			return errs.NewBadRequestError(message, true, &code, nil, nil)

		case NotNullViolation:
			fields := []errs.FieldError{{
				Field: strings.ToLower(sqlErr.ColumnName),
				Error: "is required",
			}}
			return errs.NewBadRequestError(message, true, &code, fields, nil)

		case CheckViolation, InvalidTextRepresentation:
			return errs.NewBadRequestError(message, true, &code, nil, nil)

		default:
			return errs.NewInternalServerError()
		}
	}

	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		// Repositories tag lookups with "table:<name>:" so the entity can be named.
		const tablePrefix = "table:"
		if msg := err.Error(); strings.Contains(msg, tablePrefix) {
			table := strings.Split(strings.Split(msg, tablePrefix)[1], ":")[0]
			return errs.NewNotFoundError(fmt.Sprintf("%s not found", entityName(table, "")), true, nil)
		}
		return errs.NewNotFoundError("Resource not found", false, nil)
	}

	return errs.NewInternalServerError()
}
