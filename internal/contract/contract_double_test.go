package contract_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kjstillabower/codex-platform-contract/internal/client"
	"github.com/kjstillabower/codex-platform-contract/internal/contract"
	httpapi "github.com/kjstillabower/codex-platform-contract/internal/http"
	"github.com/kjstillabower/codex-platform-contract/internal/testhelpers"
)

var _ = Describe("Platform contract against the service double", func() {
	var (
		ctx      context.Context
		double   *testhelpers.Double
		c        *client.Client
		fixtures contract.Fixtures
	)

	BeforeEach(func() {
		ctx = context.Background()
		double = testhelpers.StartDouble(GinkgoT(), httpapi.RouterOptions{})
		c = double.NewClient(GinkgoT(), nil)
		fixtures = contract.DefaultFixtures()
	})

	runScenario := func(name string) error {
		selected, err := contract.Select(contract.Scenarios(), []string{name})
		Expect(err).NotTo(HaveOccurred())
		Expect(selected).To(HaveLen(1))
		report := contract.NewRunner(c, nil, contract.Options{Fixtures: fixtures}).Run(ctx, selected)
		Expect(report.Results).To(HaveLen(1))
		return report.Results[0].Err
	}

	Context("When listing platforms", func() {
		It("should return records that all satisfy the platform shape", func() {
			res := c.Call(ctx, client.EndpointGetPlatforms, client.WithMethod("GET"))
			Expect(res.OK()).To(BeTrue())
			Expect(contract.CheckPlatformList(res.Value())).To(Succeed())
			Expect(res.Value()).To(HaveLen(len(testhelpers.SeedPlatforms())))
		})

		It("should pass the list scenario", func() {
			Expect(runScenario(contract.ScenarioGetPlatforms)).To(Succeed())
		})
	})

	Context("When looking up the seeded record", func() {
		It("should find it by name", func() {
			Expect(runScenario(contract.ScenarioGetPlatformByName)).To(Succeed())
		})

		It("should find it by ID", func() {
			Expect(runScenario(contract.ScenarioGetPlatformByID)).To(Succeed())
		})

		It("should return the same record on repeated lookups", func() {
			Expect(runScenario(contract.ScenarioGetByIDIdempotent)).To(Succeed())
		})

		It("should fail the by-name scenario for an unknown name", func() {
			fixtures.LookupName = "Jaguar"
			err := runScenario(contract.ScenarioGetPlatformByName)
			Expect(err).To(HaveOccurred())
			Expect(client.CategorizeError(err)).To(Equal(client.ErrorCategoryAppError))
		})
	})

	Context("When walking a record through its lifecycle", func() {
		It("should create, update and delete without leaving anything behind", func() {
			Expect(runScenario(contract.ScenarioAddUpdateDelete)).To(Succeed())
			Expect(double.Store.Len()).To(Equal(len(testhelpers.SeedPlatforms())))
		})

		It("should not find a record after deleting it", func() {
			Expect(runScenario(contract.ScenarioDeleteIsTerminal)).To(Succeed())
			Expect(double.Store.Len()).To(Equal(len(testhelpers.SeedPlatforms())))
		})

		It("should reject a create that collides with an existing name", func() {
			fixtures.CreateName = "Dreamcast"
			err := runScenario(contract.ScenarioAddUpdateDelete)
			Expect(err).To(HaveOccurred())

			var appErr *client.AppError
			Expect(errors.As(err, &appErr)).To(BeTrue())
			Expect(double.Store.Len()).To(Equal(len(testhelpers.SeedPlatforms())))
		})

		It("should clean up when the update is rejected", func() {
			fixtures.UpdateName = "x"
			err := runScenario(contract.ScenarioAddUpdateDelete)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("should match min 3"))
			Expect(double.Store.Len()).To(Equal(len(testhelpers.SeedPlatforms())))
		})

		It("should leave the record when cleanup is disabled", func() {
			fixtures.UpdateName = "x"
			fixtures.Cleanup = false
			Expect(runScenario(contract.ScenarioAddUpdateDelete)).NotTo(Succeed())
			Expect(double.Store.Len()).To(Equal(len(testhelpers.SeedPlatforms()) + 1))
		})
	})

	Context("When the service requires an API key", func() {
		BeforeEach(func() {
			double = testhelpers.StartDouble(GinkgoT(), httpapi.RouterOptions{APIKey: "s3cret"})
		})

		It("should pass every scenario with the key configured", func() {
			c = double.NewClient(GinkgoT(), map[string]string{httpapi.APIKeyHeader: "s3cret"})
			report := contract.NewRunner(c, nil, contract.Options{Fixtures: contract.DefaultFixtures()}).Run(ctx, contract.Scenarios())
			Expect(report.Failed()).To(BeEmpty())
		})

		It("should fail every scenario without it", func() {
			c = double.NewClient(GinkgoT(), nil)
			report := contract.NewRunner(c, nil, contract.Options{Fixtures: contract.DefaultFixtures()}).Run(ctx, contract.Scenarios())
			Expect(report.Failed()).To(HaveLen(len(contract.Scenarios())))
		})
	})
})
