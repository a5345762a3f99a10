/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-sql-driver/mysql"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// DefaultName is the database requested from the relational-db relation
const DefaultName = "mlflow"

// ConnectionInfo is the MySQL connection data published on the relational-db relation
type ConnectionInfo struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// TrackingURI is the SQLAlchemy URI MLflow uses as its backend store
func (c ConnectionInfo) TrackingURI() string {
	return fmt.Sprintf("mysql+pymysql://%s:%s@%s:%s/%s", c.Username, c.Password, c.Host, c.Port, c.Database)
}

// Address is host:port
func (c ConnectionInfo) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// ParseEndpoints splits a data-platform endpoints value ("host:port,host:port")
// and returns the first endpoint's host and port.
func ParseEndpoints(endpoints string) (string, string, error) {
	first := strings.TrimSpace(strings.Split(endpoints, ",")[0])
	if first == "" {
		return "", "", fmt.Errorf("no endpoints in %q", endpoints)
	}
	host, port, err := net.SplitHostPort(first)
	if err != nil {
		return "", "", fmt.Errorf("invalid endpoint %q: %w", first, err)
	}
	if host == "" || port == "" {
		return "", "", fmt.Errorf("invalid endpoint %q: host and port are required", first)
	}
	return host, port, nil
}

// FromRelationData builds ConnectionInfo from a relational-db remote data bag.
// It returns false when any required key is missing.
func FromRelationData(data map[string]string) (ConnectionInfo, bool, error) {
	endpoints, username, password := data["endpoints"], data["username"], data["password"]
	if endpoints == "" || username == "" || password == "" {
		return ConnectionInfo{}, false, nil
	}
	host, port, err := ParseEndpoints(endpoints)
	if err != nil {
		return ConnectionInfo{}, false, err
	}
	name := data["database"]
	if name == "" {
		name = DefaultName
	}
	return ConnectionInfo{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		Database: name,
	}, true, nil
}

// Prober checks that a database accepts connections
type Prober interface {
	Probe(ctx context.Context, info ConnectionInfo) error
}

// MySQLProber pings the database with the MySQL driver
type MySQLProber struct {
	Timeout time.Duration
}

var _ Prober = &MySQLProber{}

// Probe opens a single connection and pings the server
func (p *MySQLProber) Probe(ctx context.Context, info ConnectionInfo) error {
	log := logf.FromContext(ctx)

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = info.Address()
	cfg.User = info.Username
	cfg.Passwd = info.Password
	cfg.DBName = info.Database
	if p.Timeout > 0 {
		cfg.Timeout = p.Timeout
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return fmt.Errorf("failed to create mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	defer db.Close()
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database at %s: %w", cfg.Addr, err)
	}

	log.V(1).Info("Database accepts connections", "address", cfg.Addr, "database", cfg.DBName)
	return nil
}

// driverLogger adapts a logr.Logger to the MySQL driver's logger
type driverLogger struct {
	log logr.Logger
}

func (l driverLogger) Print(v ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprint(v...)))
}

// UseLogger sends the MySQL driver's own messages to log
func UseLogger(log logr.Logger) error {
	return mysql.SetLogger(driverLogger{log: log})
}
