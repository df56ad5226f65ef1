// Package containers provides testcontainer management for integration tests.
//
// It wraps testcontainers-go to start a MySQL 8.0 database for exercising the
// mysql datastore backend. Containers are typically managed from TestMain:
//
//	var mysqlContainer *containers.MySQLContainer
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    var err error
//	    mysqlContainer, err = containers.NewMySQLContainer(ctx, nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    code := m.Run()
//	    _ = mysqlContainer.Terminate(ctx)
//	    os.Exit(code)
//	}
//
// Integration tests using this package should use the "integration" build tag:
//
//	//go:build integration
package containers
