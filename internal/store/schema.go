package store

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS attraction (
		id INTEGER PRIMARY KEY,
		name TEXT,
		url TEXT,
		opening_hours TEXT,
		address TEXT,
		city TEXT,
		category TEXT,
		lat REAL,
		lng REAL,
		description TEXT,
		wiki_url TEXT,
		google_rating REAL,
		google_votes_count INTEGER,
		google_map_url TEXT,
		website TEXT,
		phone TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS national_monument (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		attraction_id INTEGER,
		ticket_price REAL,
		ticket_price_status TEXT,
		visiting_services TEXT,
		ticket_price_raw TEXT,
		advertising_title TEXT,
		price_conditions TEXT,
		payment_methods TEXT,
		FOREIGN KEY (attraction_id) REFERENCES attraction (id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attraction_name ON attraction(name)`,
	`CREATE INDEX IF NOT EXISTS idx_national_monument_attraction ON national_monument(attraction_id)`,
}

// High rating on a small but non-trivial number of votes.
var viewStatements = []string{
	`DROP VIEW IF EXISTS view_hidden_gems`,
	`CREATE VIEW view_hidden_gems AS
	SELECT a.name, a.category, a.city, a.google_rating, a.google_votes_count, a.description
	FROM attraction a
	WHERE a.google_rating >= 4.5
	  AND a.google_votes_count < 500
	  AND a.google_votes_count > 10
	ORDER BY a.google_rating DESC, a.google_votes_count DESC`,

	`DROP VIEW IF EXISTS view_category_performance`,
	`CREATE VIEW view_category_performance AS
	SELECT category,
	       COUNT(*) AS monument_count,
	       ROUND(AVG(google_rating), 2) AS avg_rating,
	       SUM(google_votes_count) AS total_google_votes
	FROM attraction
	WHERE category IS NOT NULL
	GROUP BY category
	ORDER BY total_google_votes DESC`,

	`DROP VIEW IF EXISTS view_national_monument_prestige`,
	`CREATE VIEW view_national_monument_prestige AS
	SELECT a.name, n.ticket_price, n.visiting_services, a.google_rating, a.google_votes_count
	FROM national_monument n
	JOIN attraction a ON n.attraction_id = a.id
	ORDER BY a.google_rating DESC`,

	`DROP VIEW IF EXISTS view_price_overview`,
	`CREATE VIEW view_price_overview AS
	SELECT ticket_price_status,
	       COUNT(*) AS monument_count,
	       ROUND(AVG(CASE WHEN ticket_price_status = 'parsed' THEN ticket_price END), 2) AS avg_price
	FROM national_monument
	GROUP BY ticket_price_status
	ORDER BY monument_count DESC`,
}

// Views lists the reporting views created by Store.
func Views() []string {
	return []string{
		"view_hidden_gems",
		"view_category_performance",
		"view_national_monument_prestige",
		"view_price_overview",
	}
}

// relationship is a foreign key checked by CheckIntegrity.
type relationship struct {
	child, fk, parent, pk string
}

var relationships = []relationship{
	{child: "national_monument", fk: "attraction_id", parent: "attraction", pk: "id"},
}

var tables = []string{"attraction", "national_monument"}
