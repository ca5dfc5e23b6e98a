package services

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	_ "github.com/lib/pq"

	"github.com/oscaryu0/VaultArt/crypto"
	"github.com/oscaryu0/VaultArt/protocol"
)

// PostgresStore implements MarketStore with PostgreSQL persistence.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	// Prices are stored as decimal text to keep arbitrary-precision values
	// exact across the round trip.
	schema := `
	CREATE TABLE IF NOT EXISTS art_tokens (
		token_id BIGINT PRIMARY KEY,
		owner VARCHAR(128) NOT NULL,
		minter VARCHAR(128) NOT NULL,
		uri TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS listings (
		token_id BIGINT PRIMARY KEY REFERENCES art_tokens(token_id),
		seller VARCHAR(128) NOT NULL,
		price VARCHAR(128) NOT NULL,
		active BOOLEAN NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS encrypted_bids (
		id BIGSERIAL PRIMARY KEY,
		token_id BIGINT NOT NULL REFERENCES art_tokens(token_id),
		bidder VARCHAR(128) NOT NULL,
		seller VARCHAR(128) NOT NULL,
		handle VARCHAR(256) NOT NULL UNIQUE,
		proof BYTEA NOT NULL,
		placed_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_listings_active ON listings(active);
	CREATE INDEX IF NOT EXISTS idx_bids_token ON encrypted_bids(token_id);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveToken upserts a token record.
func (s *PostgresStore) SaveToken(token *protocol.ArtToken) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
	INSERT INTO art_tokens (token_id, owner, minter, uri, updated_at)
	VALUES ($1, $2, $3, $4, NOW())
	ON CONFLICT (token_id) DO UPDATE SET
		owner = EXCLUDED.owner,
		uri = EXCLUDED.uri,
		updated_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query,
		int64(token.ID),
		token.Owner.String(),
		token.Minter.String(),
		token.URI,
	)
	return err
}

// SaveListing upserts the current listing record for a token.
func (s *PostgresStore) SaveListing(listing *protocol.Listing) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
	INSERT INTO listings (token_id, seller, price, active, updated_at)
	VALUES ($1, $2, $3, $4, NOW())
	ON CONFLICT (token_id) DO UPDATE SET
		seller = EXCLUDED.seller,
		price = EXCLUDED.price,
		active = EXCLUDED.active,
		updated_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query,
		int64(listing.TokenID),
		listing.Seller.String(),
		listing.Price.String(),
		listing.Active,
	)
	return err
}

// SaveBid appends a bid record. Bids are never updated or deleted.
func (s *PostgresStore) SaveBid(bid *protocol.EncryptedBid) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
	INSERT INTO encrypted_bids (token_id, bidder, seller, handle, proof, placed_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (handle) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		int64(bid.TokenID),
		bid.Bidder.String(),
		bid.Seller.String(),
		string(bid.Handle),
		[]byte(bid.Proof),
		bid.Timestamp,
	)
	return err
}

// LoadState retrieves all persisted market records.
func (s *PostgresStore) LoadState() (*protocol.MarketState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	state := &protocol.MarketState{}

	rows, err := s.db.QueryContext(ctx, `SELECT token_id, owner, minter, uri FROM art_tokens ORDER BY token_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id            int64
			owner, minter string
			uri           string
		)
		if err := rows.Scan(&id, &owner, &minter, &uri); err != nil {
			return nil, fmt.Errorf("scanning token row: %w", err)
		}

		ownerKey, err := crypto.NewPublicKeyFromString(owner)
		if err != nil {
			return nil, fmt.Errorf("token %d owner: %w", id, err)
		}
		minterKey, err := crypto.NewPublicKeyFromString(minter)
		if err != nil {
			return nil, fmt.Errorf("token %d minter: %w", id, err)
		}

		state.Tokens = append(state.Tokens, &protocol.ArtToken{
			ID:     protocol.TokenID(id),
			Owner:  ownerKey,
			Minter: minterKey,
			URI:    uri,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	listingRows, err := s.db.QueryContext(ctx, `SELECT token_id, seller, price, active FROM listings ORDER BY token_id`)
	if err != nil {
		return nil, err
	}
	defer listingRows.Close()

	for listingRows.Next() {
		var (
			id            int64
			seller, price string
			active        bool
		)
		if err := listingRows.Scan(&id, &seller, &price, &active); err != nil {
			return nil, fmt.Errorf("scanning listing row: %w", err)
		}

		sellerKey, err := crypto.NewPublicKeyFromString(seller)
		if err != nil {
			return nil, fmt.Errorf("listing %d seller: %w", id, err)
		}
		priceInt, ok := new(big.Int).SetString(price, 10)
		if !ok {
			return nil, fmt.Errorf("listing %d has malformed price %q", id, price)
		}

		state.Listings = append(state.Listings, &protocol.Listing{
			TokenID: protocol.TokenID(id),
			Seller:  sellerKey,
			Price:   priceInt,
			Active:  active,
		})
	}
	if err := listingRows.Err(); err != nil {
		return nil, err
	}

	bidRows, err := s.db.QueryContext(ctx, `
		SELECT token_id, bidder, seller, handle, proof, placed_at
		FROM encrypted_bids ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer bidRows.Close()

	for bidRows.Next() {
		var (
			id             int64
			bidder, seller string
			handle         string
			proof          []byte
			placedAt       time.Time
		)
		if err := bidRows.Scan(&id, &bidder, &seller, &handle, &proof, &placedAt); err != nil {
			return nil, fmt.Errorf("scanning bid row: %w", err)
		}

		bidderKey, err := crypto.NewPublicKeyFromString(bidder)
		if err != nil {
			return nil, fmt.Errorf("bid on token %d bidder: %w", id, err)
		}
		sellerKey, err := crypto.NewPublicKeyFromString(seller)
		if err != nil {
			return nil, fmt.Errorf("bid on token %d seller: %w", id, err)
		}

		state.Bids = append(state.Bids, &protocol.EncryptedBid{
			TokenID:   protocol.TokenID(id),
			Bidder:    bidderKey,
			Seller:    sellerKey,
			Handle:    protocol.Handle(handle),
			Proof:     proof,
			Timestamp: placedAt,
		})
	}
	if err := bidRows.Err(); err != nil {
		return nil, err
	}

	return state, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
