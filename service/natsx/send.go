package natsx

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

func toHeader(h map[string]string) nats.Header {
	if len(h) == 0 {
		return nil
	}
	hd := nats.Header{}
	for k, v := range h {
		hd.Add(k, v)
	}
	return hd
}

func headerToMap(h nats.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func (c *NatsxClient) sendCore(subject string, data []byte, hdr map[string]string) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range hdr {
		msg.Header.Add(k, v)
	}
	if err := c.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

func (c *NatsxClient) request(ctx context.Context, subject string, data []byte, hdr map[string]string) ([]byte, error) {
	msg := &nats.Msg{Subject: subject, Data: data, Header: toHeader(hdr)}
	resp, err := c.nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", subject, err)
	}
	return resp.Data, nil
}
