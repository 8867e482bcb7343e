package transaction

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
)

// faultyConnector opens connections whose transactions fail on demand
type faultyConnector struct {
	beginErr  error
	commitErr error
}

func (c *faultyConnector) Connect(context.Context) (driver.Conn, error) {
	return &faultyConn{connector: c}, nil
}

func (c *faultyConnector) Driver() driver.Driver {
	return faultyDriver{}
}

type faultyDriver struct{}

func (faultyDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("use the connector")
}

type faultyConn struct {
	connector *faultyConnector
}

func (c *faultyConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("statements are not supported")
}

func (c *faultyConn) Close() error { return nil }

func (c *faultyConn) Begin() (driver.Tx, error) {
	if c.connector.beginErr != nil {
		return nil, c.connector.beginErr
	}
	return &faultyTx{commitErr: c.connector.commitErr}, nil
}

type faultyTx struct {
	commitErr error
}

func (t *faultyTx) Commit() error   { return t.commitErr }
func (t *faultyTx) Rollback() error { return nil }

func openFaultyDB(beginErr, commitErr error) *sql.DB {
	return sql.OpenDB(&faultyConnector{beginErr: beginErr, commitErr: commitErr})
}
