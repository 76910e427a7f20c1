package agentstep

// harvest implements spec §4.D steps 6-7: parse the result envelope out of
// container output, fold in capability/deployment markers, and attach
// bounded metadata.
func (c *Controller) harvest(req Request, base *Result, containerLog string, waitErr error) *Result {
	base.AgentLogs = truncateBytes(containerLog, maxAgentLogBytes)

	result, completed, syntheticErr := extractResultJSON(containerLog, req.WorkspaceDir)
	base.Output = result
	base.Completed = completed

	if cap := findCapabilityMarker(containerLog); cap != nil {
		base.CapabilityRequested = true
		base.Capability = &CapabilityPayload{
			Type:          cap.Kind,
			Resource:      joinPackages(cap.Packages),
			Justification: cap.Reason,
		}
	}

	if dep := findDeploymentMarker(containerLog); dep != nil && !base.CapabilityRequested {
		base.DeploymentRequested = true
		base.Deployment = &DeploymentPayload{
			Name:       dep.Name,
			Port:       dep.Port,
			Entrypoint: dep.Entrypoint,
			Files:      map[string]string{},
		}
	}

	switch {
	case waitErr != nil && !base.CapabilityRequested && !base.DeploymentRequested:
		base.AgentFailed = true
		base.Error = waitErr.Error()
	case !completed && !base.CapabilityRequested && !base.DeploymentRequested && syntheticErr != "":
		base.AgentFailed = true
		base.Error = syntheticErr
	}

	if deliverables, err := collectDeliverables(req.WorkspaceDir); err == nil {
		base.Deliverables = deliverables
	}

	return base
}

func joinPackages(pkgs []string) string {
	if len(pkgs) == 0 {
		return ""
	}
	out := pkgs[0]
	for _, p := range pkgs[1:] {
		out += "," + p
	}
	return out
}
