package state

import "strings"

var (
	strZeroBytes32 = strings.Repeat("0", 64)
	strZeroBytes20 = strings.Repeat("0", 40)

	// table stores key-value pairs. Both key and value are a 32-byte hex string without prefix '0x'
	kvTable = `CREATE TABLE IF NOT EXISTS kv (
		key CHAR(64) PRIMARY KEY NOT NULL,
		value CHAR(64) NOT NULL
	);`

	// outbound deposits, keyed by message id. Amounts are decimal strings
	// since they do not fit in 64 bits.
	requestTable = `CREATE TABLE IF NOT EXISTS request (
		id CHAR(64) PRIMARY KEY NOT NULL,
		chain VARCHAR(10) NOT NULL,
		sourceChain VARCHAR(78) NOT NULL,
		txHash CHAR(64) NOT NULL,
		logIndex INTEGER NOT NULL,
		sender CHAR(40) NOT NULL,
		recipient CHAR(40) NOT NULL,
		amount VARCHAR(78) NOT NULL,
		CONSTRAINT chk_chain CHECK (chain IN ('home', 'foreign')),
		CONSTRAINT chk_id CHECK (id != '` + strZeroBytes32 + `'),
		CONSTRAINT chk_recipient CHECK (recipient != '` + strZeroBytes20 + `')
	);`

	// inbound messages on their destination endpoint
	messageTable = `CREATE TABLE IF NOT EXISTS message (
		id CHAR(64) PRIMARY KEY NOT NULL,
		chain VARCHAR(10) NOT NULL,
		recipient CHAR(40) NOT NULL,
		amount VARCHAR(78) NOT NULL,
		sourceChain VARCHAR(78) NOT NULL,
		status VARCHAR(10) NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		submitTxHash CHAR(64) NOT NULL,
		finalTxHash CHAR(64),
		CONSTRAINT chk_chain CHECK (chain IN ('home', 'foreign')),
		CONSTRAINT chk_status CHECK (status IN ('pending', 'executed', 'rejected')),
		CONSTRAINT chk_id CHECK (id != '` + strZeroBytes32 + `'),
		CONSTRAINT chk_recipient CHECK (recipient != '` + strZeroBytes20 + `')
	);`

	signatureTable = `CREATE TABLE IF NOT EXISTS signature (
		id CHAR(64) NOT NULL,
		validator CHAR(40) NOT NULL,
		chain VARCHAR(10) NOT NULL,
		signature BLOB NOT NULL,
		txHash CHAR(64) NOT NULL,
		PRIMARY KEY (id, validator)
	);`

	transferTable = `CREATE TABLE IF NOT EXISTS transfer (
		chain VARCHAR(10) NOT NULL,
		seq INTEGER NOT NULL,
		txHash CHAR(64) NOT NULL,
		logIndex INTEGER NOT NULL,
		sender CHAR(40) NOT NULL,
		receiver CHAR(40) NOT NULL,
		amount VARCHAR(78) NOT NULL,
		PRIMARY KEY (chain, seq)
	);`

	requestParamList   = " id, chain, sourceChain, txHash, logIndex, sender, recipient, amount "
	messageParamList   = " id, chain, recipient, amount, sourceChain, status, reason, submitTxHash, finalTxHash "
	signatureParamList = " id, validator, chain, signature, txHash "
	transferParamList  = " chain, seq, txHash, logIndex, sender, receiver, amount "
)
