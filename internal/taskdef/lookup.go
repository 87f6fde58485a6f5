package taskdef

import (
	"fmt"
	"path/filepath"
	"sort"
)

// taskTestFiles maps task ids to their benchmark test file. One test file may
// serve several task ids. The table is static configuration: tasks without an
// entry cannot be executed.
var taskTestFiles = map[string]string{
	// FastAPI Template tasks
	"refactor-auth-dependency":      "test_aspect_bench_auth_refactor.py",
	"missing-item-404":              "test_aspect_bench_error_schema.py",
	"consistent-error-schema":       "test_aspect_bench_error_schema.py",
	"paginated-items-endpoint":      "test_aspect_bench_pagination.py",
	"stronger-password-policy":      "test_aspect_bench_password_policy.py",
	"soft-delete-items":             "test_aspect_bench_soft_delete.py",
	"rate-limit-login":              "test_aspect_bench_rate_limit.py",
	"optimize-items-query":          "test_aspect_bench_query_optimization.py",
	"add-csv-export":                "test_aspect_bench_csv_export.py",
	"refactor-items-service-layers": "test_aspect_bench_service_layers.py",
	"api-response-caching":          "test_aspect_bench_response_caching.py",
	"external-service-retry":        "test_aspect_bench_retry.py",
	"db-pool-metrics-endpoint":      "test_aspect_bench_pool_metrics.py",
	"streaming-file-upload":         "test_aspect_bench_file_upload.py",
	"api-timeout-configuration":     "test_aspect_bench_timeout_defaults.py",

	// Django Packages tasks - one test file per task
	"package-edit-permissions": "test_aspect_bench_package_edit_permissions.py",
	"grid-lock-permissions":    "test_aspect_bench_grid_lock_permissions.py",
	"api-package-404":          "test_aspect_bench_api_package_404.py",
	"api-grid-404":             "test_aspect_bench_api_grid_404.py",
	"api-error-schema":         "test_aspect_bench_api_error_schema.py",
	"package-list-pagination":  "test_aspect_bench_package_list_pagination.py",
	"grid-list-pagination":     "test_aspect_bench_grid_list_pagination.py",
	"search-filtering":         "test_aspect_bench_search_filtering.py",
	"homepage-caching":         "test_aspect_bench_homepage_caching.py",
	"search-caching":           "test_aspect_bench_search_caching.py",
	"package-csv-export":       "test_aspect_bench_package_csv_export.py",
	"grid-json-export":         "test_aspect_bench_grid_json_export.py",
	"pypi-fetch-retry":         "test_aspect_bench_pypi_fetch_retry.py",
	"github-fetch-timeout":     "test_aspect_bench_github_fetch_timeout.py",
	"api-metrics-endpoint":     "test_aspect_bench_api_metrics_endpoint.py",
}

// regressionTestFile is the side-effect suite present in each repo's harness
// tests directory.
const regressionTestFile = "test_aspect_bench_regression.py"

// TestFile resolves the benchmark test file for a task id under testsDir.
func TestFile(testsDir, taskID string) (string, error) {
	name, ok := taskTestFiles[taskID]
	if !ok {
		return "", fmt.Errorf("taskdef: no test target for task %q", taskID)
	}
	return filepath.Join(testsDir, name), nil
}

// RegressionFile returns the regression-suite path under testsDir.
func RegressionFile(testsDir string) string {
	return filepath.Join(testsDir, regressionTestFile)
}

// BenchmarkTestGlob is the pattern matching all benchmark test files.
const BenchmarkTestGlob = "test_aspect_bench_*.py"

// BenchmarkTestFiles returns every benchmark test file under testsDir,
// sorted by name.
func BenchmarkTestFiles(testsDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(testsDir, BenchmarkTestGlob))
	if err != nil {
		return nil, fmt.Errorf("taskdef: glob benchmark tests: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
