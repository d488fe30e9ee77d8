package domain

// orderTransitions описывает допустимые переходы статуса заказа.
// Терминальные статусы (completed, cancelled, failed) не имеют исходящих переходов.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:         {OrderStatusAwaitingPayment, OrderStatusCancelled},
	OrderStatusAwaitingPayment: {OrderStatusProcessing, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusProcessing:      {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:       {},
	OrderStatusCancelled:       {},
	OrderStatusFailed:          {},
}

// paymentTransitions описывает допустимые переходы платежного статуса.
// failed -> paid разрешен: после отклоненного платежа заказ остается в awaiting_payment
// и покупатель может оплатить другим способом.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:           {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusFailed:            {PaymentStatusPaid},
	PaymentStatusPaid:              {PaymentStatusPartiallyRefunded, PaymentStatusRefunded},
	PaymentStatusPartiallyRefunded: {PaymentStatusRefunded},
	PaymentStatusRefunded:          {},
}

// Terminal сообщает, является ли статус заказа конечным.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransitionTo проверяет допустимость перехода s -> to. Переход в тот же статус
// считается допустимым no-op'ом.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	if s == to {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionTo переводит заказ в статус to. При недопустимом переходе возвращает
// *IllegalTransitionError и не изменяет состояние.
func (o *Order) TransitionTo(to OrderStatus) error {
	if !o.Status.CanTransitionTo(to) {
		return &IllegalTransitionError{Entity: "order", From: string(o.Status), To: string(to)}
	}
	o.Status = to
	return nil
}

// TransitionPaymentTo переводит платежный статус заказа. Семантика аналогична TransitionTo.
func (o *Order) TransitionPaymentTo(to PaymentStatus) error {
	if o.PaymentStatus != to {
		var legal bool
		for _, allowed := range paymentTransitions[o.PaymentStatus] {
			if allowed == to {
				legal = true
				break
			}
		}
		if !legal {
			return &IllegalTransitionError{Entity: "payment", From: string(o.PaymentStatus), To: string(to)}
		}
	}
	o.PaymentStatus = to
	return nil
}
