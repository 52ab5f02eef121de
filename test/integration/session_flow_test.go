// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 sramkeep Contributors

//go:build integration

package integration

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/sramkeep/sramkeep/internal/auth"
	"github.com/sramkeep/sramkeep/internal/auth/memory"
	"github.com/sramkeep/sramkeep/pkg/errutil"
)

// carrier is an in-memory stand-in for the client-held session value.
type carrier struct {
	mu    sync.Mutex
	state auth.CarrierState
}

func (c *carrier) Get() auth.CarrierState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *carrier) Set(state auth.CarrierState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

// env bundles a fresh engine over a fresh store for each spec.
type env struct {
	store  *memory.Store
	engine *auth.Engine
}

func newEnv() *env {
	store := memory.New()
	tokens, err := auth.NewTokenIssuer(store, auth.DefaultTokenTTL)
	Expect(err).NotTo(HaveOccurred())
	engine, err := auth.NewEngine(store, auth.NewArgon2idHasher(), tokens)
	Expect(err).NotTo(HaveOccurred())
	return &env{store: store, engine: engine}
}

// seedCode mints one operator referral code straight into the store.
func (e *env) seedCode(ctx context.Context) string {
	code, err := auth.GenerateReferralCode()
	Expect(err).NotTo(HaveOccurred())
	Expect(e.store.PutReferral(ctx, code, ulid.ULID{}, time.Hour)).To(Succeed())
	return code
}

var _ = Describe("Account lifecycle", func() {
	var (
		ctx context.Context
		e   *env
	)

	BeforeEach(func() {
		ctx = context.Background()
		e = newEnv()
	})

	It("walks signup, authenticate, logout, login end to end", func() {
		code := e.seedCode(ctx)
		c := &carrier{}

		session, err := e.engine.Signup(ctx, c, "kestrel", "correct horse", code)
		Expect(err).NotTo(HaveOccurred())
		Expect(session.Handle).To(Equal("kestrel"))
		Expect(session.Token).NotTo(BeEmpty())

		By("authenticating the fresh session")
		user, err := e.engine.Authenticate(ctx, c)
		Expect(err).NotTo(HaveOccurred())
		Expect(user).NotTo(BeNil())
		Expect(user.Handle).To(Equal("kestrel"))

		By("logging out")
		Expect(e.engine.Logout(ctx, c)).To(Succeed())
		user, err = e.engine.Authenticate(ctx, c)
		Expect(err).NotTo(HaveOccurred())
		Expect(user).To(BeNil())
		Expect(c.Get().Handle).To(Equal("kestrel"), "handle cache survives logout")

		By("logging back in with a case-folded handle")
		relogin, err := e.engine.Login(ctx, c, "KESTREL", "correct horse", "songs")
		Expect(err).NotTo(HaveOccurred())
		Expect(relogin.Handle).To(Equal("kestrel"), "canonical casing comes from the store")
		Expect(relogin.ReturnTo).To(Equal("songs"))

		user, err = e.engine.Authenticate(ctx, c)
		Expect(err).NotTo(HaveOccurred())
		Expect(user).NotTo(BeNil())
	})

	It("rejects the same referral code twice", func() {
		code := e.seedCode(ctx)

		_, err := e.engine.Signup(ctx, &carrier{}, "first", "password one", code)
		Expect(err).NotTo(HaveOccurred())

		_, err = e.engine.Signup(ctx, &carrier{}, "second", "password two", code)
		Expect(err).To(HaveOccurred())
		Expect(errutil.Code(err)).To(Equal(auth.CodeInvalidReferral))
	})

	It("keeps one session per account across devices", func() {
		code := e.seedCode(ctx)
		laptop := &carrier{}

		_, err := e.engine.Signup(ctx, laptop, "kestrel", "correct horse", code)
		Expect(err).NotTo(HaveOccurred())

		phone := &carrier{}
		_, err = e.engine.Login(ctx, phone, "kestrel", "correct horse", "")
		Expect(err).NotTo(HaveOccurred())

		user, err := e.engine.Authenticate(ctx, phone)
		Expect(err).NotTo(HaveOccurred())
		Expect(user).NotTo(BeNil())

		user, err = e.engine.Authenticate(ctx, laptop)
		Expect(err).NotTo(HaveOccurred())
		Expect(user).To(BeNil(), "old session dies when a new one is issued")
	})

	It("does not reveal whether a handle exists at login", func() {
		code := e.seedCode(ctx)
		_, err := e.engine.Signup(ctx, &carrier{}, "kestrel", "correct horse", code)
		Expect(err).NotTo(HaveOccurred())

		_, wrongPassword := e.engine.Login(ctx, &carrier{}, "kestrel", "wrong", "")
		_, unknownHandle := e.engine.Login(ctx, &carrier{}, "nobody", "wrong", "")

		Expect(errutil.Code(wrongPassword)).To(Equal(auth.CodeInvalidCredentials))
		Expect(errutil.Code(unknownHandle)).To(Equal(auth.CodeInvalidCredentials))
		Expect(wrongPassword.Error()).To(Equal(unknownHandle.Error()))
	})

	Describe("concurrent signups", func() {
		const goroutines = 32

		It("admits exactly one winner per handle", func() {
			codes := make([]string, goroutines)
			for i := range codes {
				codes[i] = e.seedCode(ctx)
			}

			var wins, rejects atomic.Int64
			var wg sync.WaitGroup
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func(code string) {
					defer wg.Done()
					defer GinkgoRecover()
					_, err := e.engine.Signup(ctx, &carrier{}, "kestrel", "correct horse", code)
					if err == nil {
						wins.Add(1)
						return
					}
					Expect(errutil.Code(err)).To(Equal(auth.CodeHandleTaken))
					rejects.Add(1)
				}(codes[i])
			}
			wg.Wait()

			Expect(wins.Load()).To(Equal(int64(1)))
			Expect(rejects.Load()).To(Equal(int64(goroutines - 1)))
		})

		It("admits exactly one winner per referral code", func() {
			code := e.seedCode(ctx)

			var wins atomic.Int64
			var wg sync.WaitGroup
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func(n int) {
					defer wg.Done()
					defer GinkgoRecover()
					handle := "user" + string(rune('a'+n%26)) + string(rune('a'+n/26))
					_, err := e.engine.Signup(ctx, &carrier{}, handle, "correct horse", code)
					if err == nil {
						wins.Add(1)
						return
					}
					Expect(errutil.Code(err)).To(Equal(auth.CodeInvalidReferral))
				}(i)
			}
			wg.Wait()

			Expect(wins.Load()).To(Equal(int64(1)))
		})
	})
})
