// journal/schema.go
package journal

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/ouro/indicators"
)

const Schema = `
CREATE TABLE IF NOT EXISTS actions (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	ticker TEXT NOT NULL,
	family TEXT NOT NULL,
	decision TEXT NOT NULL,
	reason TEXT NOT NULL,
	price REAL NOT NULL,
	cash REAL NOT NULL,
	open_orders INTEGER NOT NULL,
	trade_capital REAL NOT NULL,
	max_risk_amt REAL NOT NULL,
	ceiling_price REAL NOT NULL,
	floor_price REAL NOT NULL,
	order_shares INTEGER NOT NULL,
	trade_risk_amt REAL NOT NULL,
	risk_pct REAL NOT NULL,
	buy_limit REAL NOT NULL,
	trade_return_pct REAL NOT NULL,
	signals INTEGER NOT NULL,
	threshold REAL NOT NULL,
	order_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_actions_time ON actions(time);

CREATE TABLE IF NOT EXISTS status (
	time DATETIME NOT NULL,
	ticker TEXT NOT NULL,
	family TEXT NOT NULL,
	signals INTEGER NOT NULL,
	threshold REAL,
	decision TEXT NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_status_time ON status(time);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	ticker TEXT NOT NULL,
	qty INTEGER NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	realized_pl REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger (
	ticker TEXT NOT NULL,
	trade_date TEXT NOT NULL,
	buy_id TEXT NOT NULL,
	buy_time DATETIME,
	buy_qty INTEGER NOT NULL,
	buy_price REAL NOT NULL,
	sell_id TEXT NOT NULL,
	sell_time DATETIME,
	sell_qty INTEGER NOT NULL,
	sell_price REAL NOT NULL,
	gross_cost REAL NOT NULL,
	gross_proceeds REAL NOT NULL,
	gain_loss REAL,
	PRIMARY KEY (ticker, trade_date)
);
`

// rowColumns are the stored indicator_rows columns after ticker and time.
var rowColumns = append(
	append([]string{"open", "high", "low", "close", "volume"}, indicators.Columns...),
	"trend", "code",
)

func rowsSchema() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS indicator_rows (\n\tticker TEXT NOT NULL,\n\ttime DATETIME NOT NULL,\n")
	for _, c := range rowColumns {
		typ := "REAL"
		if c == "trend" || c == "code" {
			typ = "TEXT"
		}
		fmt.Fprintf(&b, "\t%s %s,\n", c, typ)
	}
	b.WriteString("\tPRIMARY KEY (ticker, time)\n);")
	return b.String()
}
