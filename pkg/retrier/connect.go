// Package retrier retries operations against infrastructure that may not be up yet.
package retrier

import "time"

// Connect calls connector up to retry times and returns the first value it
// produces without error. Between failed attempts it sleeps sleep seconds;
// there is no sleep after the last one.
//
//	conn, err := retrier.Connect(5, 2, func() (*amqp.Connection, error) {
//	    return amqp.Dial(cfg.Urls.Rabbitmq)
//	})
func Connect[T any](retry uint8, sleep uint, connector func() (T, error)) (T, error) {
	var (
		out T
		err error
	)

	for attempt := range retry {
		out, err = connector()
		if err == nil {
			return out, nil
		}

		if attempt+1 < retry {
			time.Sleep(time.Duration(sleep) * time.Second)
		}
	}

	return out, err
}
