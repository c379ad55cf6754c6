package steps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/scenario"
	"github.com/sumitpatel93/ledger-harness/internal/subscription"
)

// timeoutSlack is how long after its deadline a subscription wait may take to give up.
const timeoutSlack = 50 * time.Millisecond

func registerTopicSteps(r *registry, st *state, waitTimeout time.Duration) {
	r.step(`^a topic is created with the memo "([^"]*)"$`, func(ctx context.Context, memo string) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		st.topicID, err = w.CreateTopic(ctx, memo, nil)
		return err
	})

	r.step(`^a (\d+) of (\d+) threshold key over the created accounts$`, func(ctx context.Context, threshold, size int) error {
		if err := scenario.Prerequisite(len(st.accounts) >= size, fmt.Sprintf("%d accounts are needed, %d exist", size, len(st.accounts))); err != nil {
			return err
		}
		keys := make([]ledger.PublicKey, 0, size)
		for _, account := range st.accounts[:size] {
			keys = append(keys, account.Key.PublicKey())
		}
		key, err := ledger.NewThresholdKey(uint(threshold), keys...)
		if err != nil {
			return err
		}
		st.thresholdKey = key
		return nil
	})

	r.step(`^a topic is created with the memo "([^"]*)" and the threshold key as submit key$`, func(ctx context.Context, memo string) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		if err = scenario.Prerequisite(st.thresholdKey != nil, "no threshold key was created"); err != nil {
			return err
		}
		st.topicID, err = w.CreateTopic(ctx, memo, st.thresholdKey)
		return err
	})

	r.step(`^the message "([^"]*)" is published to the topic$`, func(ctx context.Context, message string) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		topicID, err := st.topic()
		if err != nil {
			return err
		}
		_, err = w.Publisher.PublishNow(ctx, message, topicID, nil)
		return err
	})

	r.step(`^the message "([^"]*)" is submitted to the topic signed by accounts? `+accountList+`$`, func(ctx context.Context, message, signers string) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		topicID, err := st.topic()
		if err != nil {
			return err
		}
		keys, err := st.keysOf(signers)
		if err != nil {
			return err
		}
		st.attempt(w.Execute(ctx, &ledger.TopicMessageSubmit{TopicID: topicID, Message: []byte(message)}, keys...))
		return nil
	})

	r.step(`^(\d+) messages are queued for the topic$`, func(ctx context.Context, count int) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		topicID, err := st.topic()
		if err != nil {
			return err
		}
		for i := 1; i <= count; i++ {
			if err = w.Publisher.Publish(ctx, fmt.Sprintf("message %d", i), topicID, nil); err != nil {
				return err
			}
		}
		return nil
	})

	r.step(`^(\d+) messages? (?:is|are) still queued$`, func(ctx context.Context, count int) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		return expectEqual("the number of queued messages", count, w.Publisher.Pending())
	})

	r.step(`^the queued messages are flushed$`, func(ctx context.Context) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		return w.Publisher.Flush(ctx)
	})

	r.slowStep(`^the message "([^"]*)" is received from the topic$`, func(ctx context.Context, message string) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		topicID, err := st.topic()
		if err != nil {
			return err
		}
		_, err = w.WaitForMessage(ctx, topicID, message)
		return err
	}, waitTimeout)

	r.step(`^waiting (\d+) ms for the message "([^"]*)" times out$`, func(ctx context.Context, ms int, message string) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		topicID, err := st.topic()
		if err != nil {
			return err
		}

		timeout := time.Duration(ms) * time.Millisecond
		started := time.Now()
		_, err = w.Matcher.WaitForMessage(ctx, topicID, time.Unix(0, 0), message, timeout)
		if !errors.Is(err, subscription.ErrSubscriptionTimeout) {
			return fmt.Errorf("expected the wait for %q to time out, got %v", message, err)
		}
		elapsed := time.Since(started)
		if elapsed < timeout {
			return fmt.Errorf("wait timed out after %s, before the %s deadline", elapsed, timeout)
		}
		if limit := timeout + timeoutSlack; elapsed > limit {
			return fmt.Errorf("wait timed out after %s, later than %s", elapsed, limit)
		}
		return nil
	})
}
