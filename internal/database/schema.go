package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the three box-office tables.  Statements are
// idempotent so Migrate can run on every start.  The CHECK constraint
// on shows is the storage-level guard for the seat counter; the
// foreign keys back up the restrict-delete policy enforced by the
// repositories.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS shows (
		id              CHAR(36)      NOT NULL PRIMARY KEY,
		title           VARCHAR(255)  NOT NULL,
		show_date       DATE          NOT NULL,
		show_time       VARCHAR(32)   NOT NULL,
		description     TEXT          NOT NULL,
		ticket_price    DECIMAL(10,2) NOT NULL,
		total_seats     INT           NOT NULL,
		available_seats INT           NOT NULL,
		venue           VARCHAR(255)  NOT NULL,
		created_at      DATETIME(3)   NOT NULL,
		updated_at      DATETIME(3)   NOT NULL,
		INDEX idx_shows_date (show_date, show_time),
		CONSTRAINT chk_shows_seats CHECK (available_seats >= 0 AND available_seats <= total_seats),
		CONSTRAINT chk_shows_price CHECK (ticket_price >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS customers (
		id         CHAR(36)     NOT NULL PRIMARY KEY,
		first_name VARCHAR(100) NOT NULL,
		last_name  VARCHAR(100) NOT NULL,
		email      VARCHAR(255) NOT NULL,
		phone      VARCHAR(50)  NOT NULL,
		created_at DATETIME(3)  NOT NULL,
		updated_at DATETIME(3)  NOT NULL,
		INDEX idx_customers_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id                CHAR(36)      NOT NULL PRIMARY KEY,
		show_id           CHAR(36)      NOT NULL,
		customer_id       CHAR(36)      NOT NULL,
		seat_numbers      JSON          NOT NULL,
		number_of_tickets INT           NOT NULL,
		total_price       DECIMAL(10,2) NOT NULL,
		booking_date      DATETIME(3)   NOT NULL,
		status            ENUM('reserved','confirmed','cancelled') NOT NULL DEFAULT 'reserved',
		payment_status    ENUM('pending','paid','refunded')        NOT NULL DEFAULT 'pending',
		created_at        DATETIME(3)   NOT NULL,
		updated_at        DATETIME(3)   NOT NULL,
		INDEX idx_tickets_show (show_id),
		INDEX idx_tickets_customer (customer_id),
		INDEX idx_tickets_booking_date (booking_date),
		CONSTRAINT fk_tickets_show FOREIGN KEY (show_id) REFERENCES shows(id) ON DELETE RESTRICT,
		CONSTRAINT fk_tickets_customer FOREIGN KEY (customer_id) REFERENCES customers(id) ON DELETE RESTRICT,
		CONSTRAINT chk_tickets_count CHECK (number_of_tickets >= 1)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema.  It stops at the first failing statement.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
