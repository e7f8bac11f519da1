package store

// Store aggregates every repo behind one handle. The promoted method set
// satisfies the narrow Store interfaces each agent package declares.
type Store struct {
	*DocumentRepo
	*TransactionRepo
	*MetricsRepo
	*ResultRepo
}

func New() *Store {
	return &Store{
		DocumentRepo:    NewDocumentRepo(),
		TransactionRepo: NewTransactionRepo(),
		MetricsRepo:     NewMetricsRepo(),
		ResultRepo:      NewResultRepo(),
	}
}
