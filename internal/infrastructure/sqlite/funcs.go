package sqlite

import (
	"database/sql/driver"
	"fmt"

	"golang.org/x/text/cases"
	"modernc.org/sqlite"
)

// casefold(x) pliegue Unicode de mayúsculas; lower() de SQLite solo cubre ASCII.
func init() {
	err := sqlite.RegisterDeterministicScalarFunction("casefold", 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case nil:
				return nil, nil
			case string:
				return foldString(v), nil
			case []byte:
				return foldString(string(v)), nil
			default:
				return foldString(fmt.Sprint(v)), nil
			}
		})
	if err != nil {
		panic(fmt.Sprintf("register casefold: %v", err))
	}
}

// foldString un Caser no es seguro entre goroutines: se crea por llamada.
func foldString(s string) string {
	if s == "" {
		return s
	}
	return cases.Fold().String(s)
}
