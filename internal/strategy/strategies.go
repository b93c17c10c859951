package strategy

import "github.com/veritas-audit/veritas/internal/auditstate"

type ecommerceStrategy struct{}

func newEcommerceStrategy() *ecommerceStrategy { return &ecommerceStrategy{} }
func (s *ecommerceStrategy) SiteType() auditstate.SiteType { return auditstate.SiteEcommerce }
func (s *ecommerceStrategy) Adjust(ctx ScoringContext) ScoringAdjustment {
	adj := ScoringAdjustment{
		WeightAdjustments: weights(0.15, 0.20, 0.15, 0.15, 0.10, 0.25),
		NarrativeTemplate: "Storefront evaluated for checkout trust signals and payment-handling hygiene",
		Explanation:       "E-commerce sites weight security and structural integrity highest: a convincing storefront with weak checkout security is the classic card-skimming pattern",
		CustomFindings:    UniversalCriticalTriggers(ctx),
	}
	if ctx.FormRiskScore > 60 {
		adj.CustomFindings = append(adj.CustomFindings, CustomFinding{Name: "risky_checkout_form", Severity: auditstate.SeverityHigh, AutoDeductPoints: 15})
	}
	return adj
}

type companyPortfolioStrategy struct{}

func newCompanyPortfolioStrategy() *companyPortfolioStrategy { return &companyPortfolioStrategy{} }
func (s *companyPortfolioStrategy) SiteType() auditstate.SiteType { return auditstate.SiteCompanyPortfolio }
func (s *companyPortfolioStrategy) Adjust(ctx ScoringContext) ScoringAdjustment {
	return ScoringAdjustment{
		WeightAdjustments: weights(0.25, 0.20, 0.15, 0.20, 0.10, 0.10),
		NarrativeTemplate: "Corporate site evaluated for presentation consistency and public-record corroboration",
		Explanation:       "A company site's trust signal is mostly presentational and graph-corroborated, since it rarely handles sensitive transactions directly",
		CustomFindings:    UniversalCriticalTriggers(ctx),
	}
}

type financialStrategy struct{}

func newFinancialStrategy() *financialStrategy { return &financialStrategy{} }
func (s *financialStrategy) SiteType() auditstate.SiteType { return auditstate.SiteFinancial }
func (s *financialStrategy) Adjust(ctx ScoringContext) ScoringAdjustment {
	adj := ScoringAdjustment{
		WeightAdjustments: weights(0.10, 0.15, 0.15, 0.15, 0.10, 0.35),
		NarrativeTemplate: "Financial service evaluated against a heightened security bar",
		Explanation:       "Financial sites carry the highest security weight of any site type: a single missing safeguard here is disproportionately costly to a victim",
		CustomFindings:    UniversalCriticalTriggers(ctx),
	}
	if ctx.DomainAgeDays < 90 {
		adj.CustomFindings = append(adj.CustomFindings, CustomFinding{Name: "young_financial_domain", Severity: auditstate.SeverityHigh, AutoDeductPoints: 25})
	}
	return adj
}

type saasSubscriptionStrategy struct{}

func newSaaSSubscriptionStrategy() *saasSubscriptionStrategy { return &saasSubscriptionStrategy{} }
func (s *saasSubscriptionStrategy) SiteType() auditstate.SiteType { return auditstate.SiteSaaSSubscription }
func (s *saasSubscriptionStrategy) Adjust(ctx ScoringContext) ScoringAdjustment {
	return ScoringAdjustment{
		WeightAdjustments: weights(0.15, 0.20, 0.10, 0.15, 0.10, 0.30),
		NarrativeTemplate: "SaaS product evaluated for billing-page integrity and account-data handling",
		Explanation:       "Subscription products recur card charges, so security and structural weight dominate over one-time presentation signals",
		CustomFindings:    UniversalCriticalTriggers(ctx),
	}
}

type newsBlogStrategy struct{}

func newNewsBlogStrategy() *newsBlogStrategy { return &newsBlogStrategy{} }
func (s *newsBlogStrategy) SiteType() auditstate.SiteType { return auditstate.SiteNewsBlog }
func (s *newsBlogStrategy) Adjust(ctx ScoringContext) ScoringAdjustment {
	return ScoringAdjustment{
		WeightAdjustments: weights(0.20, 0.15, 0.25, 0.30, 0.05, 0.05),
		NarrativeTemplate: "Publication evaluated for editorial consistency and source corroboration",
		Explanation:       "News and blog trust hinges on temporal consistency (does publication history look organic) and graph corroboration (is the outlet referenced elsewhere), not security posture",
		CustomFindings:    UniversalCriticalTriggers(ctx),
	}
}

type socialMediaStrategy struct{}

func newSocialMediaStrategy() *socialMediaStrategy { return &socialMediaStrategy{} }
func (s *socialMediaStrategy) SiteType() auditstate.SiteType { return auditstate.SiteSocialMedia }
func (s *socialMediaStrategy) Adjust(ctx ScoringContext) ScoringAdjustment {
	adj := ScoringAdjustment{
		WeightAdjustments: weights(0.25, 0.15, 0.15, 0.20, 0.05, 0.20),
		NarrativeTemplate: "Social platform evaluated for account-takeover surface and content authenticity",
		Explanation:       "Social platforms are judged on visual/structural authenticity (impersonation is the dominant risk) alongside standard security hygiene",
		CustomFindings:    UniversalCriticalTriggers(ctx),
	}
	if ctx.FormRiskScore > 50 {
		adj.CustomFindings = append(adj.CustomFindings, CustomFinding{Name: "credential_harvesting_form", Severity: auditstate.SeverityHigh, AutoDeductPoints: 20})
	}
	return adj
}

type educationStrategy struct{}

func newEducationStrategy() *educationStrategy { return &educationStrategy{} }
func (s *educationStrategy) SiteType() auditstate.SiteType { return auditstate.SiteEducation }
func (s *educationStrategy) Adjust(ctx ScoringContext) ScoringAdjustment {
	return ScoringAdjustment{
		WeightAdjustments: weights(0.20, 0.20, 0.15, 0.20, 0.10, 0.15),
		NarrativeTemplate: "Educational site evaluated for institutional legitimacy signals",
		Explanation:       "Education sites benefit from graph corroboration (accreditation, domain registrar history) nearly as much as direct security posture",
		CustomFindings:    UniversalCriticalTriggers(ctx),
	}
}

type healthcareStrategy struct{}

func newHealthcareStrategy() *healthcareStrategy { return &healthcareStrategy{} }
func (s *healthcareStrategy) SiteType() auditstate.SiteType { return auditstate.SiteHealthcare }
func (s *healthcareStrategy) Adjust(ctx ScoringContext) ScoringAdjustment {
	adj := ScoringAdjustment{
		WeightAdjustments: weights(0.10, 0.15, 0.10, 0.15, 0.10, 0.40),
		NarrativeTemplate: "Healthcare site evaluated against patient-data handling safeguards",
		Explanation:       "Healthcare carries the single highest security weight of any site type given the sensitivity of the data forms on these sites typically collect",
		CustomFindings:    UniversalCriticalTriggers(ctx),
	}
	if ctx.FormRiskScore > 40 {
		adj.CustomFindings = append(adj.CustomFindings, CustomFinding{Name: "unprotected_patient_form", Severity: auditstate.SeverityCritical, AutoDeductPoints: 30})
	}
	return adj
}

type governmentStrategy struct{}

func newGovernmentStrategy() *governmentStrategy { return &governmentStrategy{} }
func (s *governmentStrategy) SiteType() auditstate.SiteType { return auditstate.SiteGovernment }
func (s *governmentStrategy) Adjust(ctx ScoringContext) ScoringAdjustment {
	return ScoringAdjustment{
		WeightAdjustments: weights(0.15, 0.20, 0.15, 0.25, 0.05, 0.20),
		NarrativeTemplate: "Government site evaluated against official domain and certificate expectations",
		Explanation:       "Government-site legitimacy leans heavily on graph corroboration (registrar, TLD, cross-references) since impersonation via lookalike domains is the dominant risk",
		CustomFindings:    UniversalCriticalTriggers(ctx),
	}
}

type gamingStrategy struct{}

func newGamingStrategy() *gamingStrategy { return &gamingStrategy{} }
func (s *gamingStrategy) SiteType() auditstate.SiteType { return auditstate.SiteGaming }
func (s *gamingStrategy) Adjust(ctx ScoringContext) ScoringAdjustment {
	return ScoringAdjustment{
		WeightAdjustments: weights(0.20, 0.15, 0.10, 0.15, 0.10, 0.30),
		NarrativeTemplate: "Gaming platform evaluated for microtransaction and account security hygiene",
		Explanation:       "Gaming platforms hold payment instruments and account credentials similarly to e-commerce, so security weight is close behind financial",
		CustomFindings:    UniversalCriticalTriggers(ctx),
	}
}
