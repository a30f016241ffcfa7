package sql

import (
	"fmt"

	"github.com/de-tools/report-atlas/pkg/services/loader"

	_ "github.com/databricks/databricks-sql-go"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/marcboeker/go-duckdb/v2"
	_ "github.com/snowflakedb/gosnowflake"
	_ "modernc.org/sqlite"
)

// driverFor maps a data source driver to its database/sql driver name and
// placeholder style.
func driverFor(driver string) (string, loader.PlaceholderStyle, error) {
	switch driver {
	case "duckdb":
		return "duckdb", loader.PlaceholderQuestion, nil
	case "postgres", "postgresql":
		return "postgres", loader.PlaceholderDollar, nil
	case "mysql":
		return "mysql", loader.PlaceholderQuestion, nil
	case "sqlite":
		return "sqlite", loader.PlaceholderQuestion, nil
	case "snowflake":
		return "snowflake", loader.PlaceholderQuestion, nil
	case "databricks":
		return "databricks", loader.PlaceholderQuestion, nil
	default:
		return "", 0, fmt.Errorf("unsupported sql driver: %q", driver)
	}
}
