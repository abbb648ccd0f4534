package paymentprovider

import "encoding/json"

// Metadata произвольные строковые метаданные, прикрепляемые к объектам
// провайдера. Метка user_uid — единственная связь между объектами
// провайдера и локальным пользователем, поэтому она проставляется всегда.
type Metadata map[string]string

// Ключи метаданных, которые система проставляет на объекты провайдера.
const (
	MetaUserUID    = "user_uid"
	MetaPlanType   = "plan_type"
	MetaChangeFrom = "change_from"
)

// Customer клиент у платёжного провайдера.
type Customer struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Metadata Metadata `json:"metadata"`
}

// CreateCustomerRequest запрос на создание клиента.
type CreateCustomerRequest struct {
	Email    string   `json:"email"`
	Metadata Metadata `json:"metadata"`
}

// RecurringPrice инлайн-цена подписки. Каталог цен у провайдера не
// используется: валюта, сумма и интервал приходят из конфига.
type RecurringPrice struct {
	Currency    string `json:"currency"`
	UnitAmount  int    `json:"unit_amount"` // В минорных единицах валюты
	Interval    string `json:"interval"`    // month | year
	ProductName string `json:"product_name"`
}

// CreateSessionRequest запрос на создание hosted checkout-сессии.
type CreateSessionRequest struct {
	CustomerID string         `json:"customer"`
	Mode       string         `json:"mode"` // Всегда "subscription"
	Price      RecurringPrice `json:"price"`
	SuccessURL string         `json:"success_url"`
	CancelURL  string         `json:"cancel_url"`
	Metadata   Metadata       `json:"metadata"`
}

// Session hosted-сессия (checkout или billing portal).
type Session struct {
	ID             string   `json:"id"`
	URL            string   `json:"url"`
	Mode           string   `json:"mode"`
	CustomerID     string   `json:"customer"`
	SubscriptionID string   `json:"subscription"`
	Metadata       Metadata `json:"metadata"`
}

// CreatePortalSessionRequest запрос на сессию self-service портала.
type CreatePortalSessionRequest struct {
	CustomerID string `json:"customer"`
	ReturnURL  string `json:"return_url"`
}

// Subscription полный снапшот подписки у провайдера. Редьюсер всегда
// перечитывает этот объект вместо доверия частичным payload-ам событий.
type Subscription struct {
	ID                 string         `json:"id"`
	CustomerID         string         `json:"customer"`
	Status             string         `json:"status"`
	Price              RecurringPrice `json:"price"`
	Metadata           Metadata       `json:"metadata"`
	CurrentPeriodStart int64          `json:"current_period_start"` // Unix-секунды
	CurrentPeriodEnd   int64          `json:"current_period_end"`   // Unix-секунды
}

// Event событие из webhook-потока провайдера. Поток at-least-once и
// без гарантий порядка, поэтому Data.Object разбирается лениво по типу.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}
