package policy

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		iterationBudgetPolicy(),
		sampleBudgetPolicy(),
		plotDomainPolicy(),
		toleranceFloorPolicy(),
	}
}

func builtin(p Policy) Policy {
	p.Enabled = true
	p.Builtin = true
	p.Source = "builtin"
	return p
}

// iterationBudgetPolicy caps the iteration budget a caller may ask for.
func iterationBudgetPolicy() Policy {
	return builtin(Policy{
		Name:        "iteration-budget",
		Description: "Rejects requests whose maxIterations exceeds the configured limit",
		Severity:    SeverityError,
		Tags:        []string{"budget"},
		Rego: `package rootfind.policies.iterations

import rego.v1

deny contains violation if {
	limit := data.rootfind.limits.maxIterations
	limit > 0
	input.maxIterations > limit
	violation := {
		"message": sprintf("maxIterations %d exceeds the limit of %d", [input.maxIterations, limit]),
		"severity": "error",
	}
}
`,
	})
}

// sampleBudgetPolicy caps the number of plot samples.
func sampleBudgetPolicy() Policy {
	return builtin(Policy{
		Name:        "sample-budget",
		Description: "Rejects requests asking for more plot samples than the configured limit",
		Severity:    SeverityError,
		Tags:        []string{"budget", "plot"},
		Rego: `package rootfind.policies.samples

import rego.v1

deny contains violation if {
	limit := data.rootfind.limits.maxSampleCount
	limit > 0
	input.sampleCount > limit
	violation := {
		"message": sprintf("sampleCount %d exceeds the limit of %d", [input.sampleCount, limit]),
		"severity": "error",
	}
}
`,
	})
}

// plotDomainPolicy bounds the width of the sampled plot window.
func plotDomainPolicy() Policy {
	return builtin(Policy{
		Name:        "plot-domain",
		Description: "Rejects plot windows wider than the configured span",
		Severity:    SeverityError,
		Tags:        []string{"plot"},
		Rego: `package rootfind.policies.plot

import rego.v1

deny contains violation if {
	limit := data.rootfind.limits.maxPlotSpan
	limit > 0
	span := input.plotXMax - input.plotXMin
	span > limit
	violation := {
		"message": sprintf("plot window [%v, %v] is wider than %v", [input.plotXMin, input.plotXMax, limit]),
		"severity": "error",
	}
}
`,
	})
}

// toleranceFloorPolicy warns when the tolerance is below what double
// precision can meaningfully resolve.
func toleranceFloorPolicy() Policy {
	return builtin(Policy{
		Name:        "tolerance-floor",
		Description: "Warns when the tolerance is below the configured floor",
		Severity:    SeverityWarning,
		Tags:        []string{"precision"},
		Rego: `package rootfind.policies.tolerance

import rego.v1

deny contains violation if {
	floor := data.rootfind.limits.minTolerance
	input.tolerance < floor
	violation := {
		"message": sprintf("tolerance %v is below %v and may not be reachable", [input.tolerance, floor]),
		"severity": "warning",
	}
}
`,
	})
}
