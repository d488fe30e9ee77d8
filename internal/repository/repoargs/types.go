package repoargs

type RepositoryName string

const (
	OrderRepoName         RepositoryName = "order"
	TransactionRepoName   RepositoryName = "transaction"
	PaymentMethodRepoName RepositoryName = "payment_method"
)
