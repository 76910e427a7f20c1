package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openclaw/agentcore/pkg/agentstep"
	"github.com/openclaw/agentcore/pkg/imagebuilder"
	"github.com/openclaw/agentcore/pkg/store"
)

// execute runs the Initializing -> Iterating -> {Approving} -> Finalizing
// state machine for one task (spec §4.E).
func (m *Manager) execute(ctx context.Context, req StartRequest) {
	task := req.Task
	log := m.logger.With("task_id", task.ID)

	startIteration, err := m.outputs.MaxIteration(ctx, task.ID)
	if err != nil {
		log.Warn("failed to resolve starting iteration, defaulting to 0", "error", err)
		startIteration = 0
	}

	currentImage := task.CurrentImage
	policyVersion := task.CurrentPolicyVersion
	followUp := req.FollowUp

	if followUp != "" {
		if outputs, err := m.outputs.ListForTask(ctx, task.ID); err == nil {
			if names := store.DeliverableFileNames(outputs); len(names) > 0 {
				followUp = continuationPreamble(names) + "\n\n" + followUp
			}
		} else {
			log.Warn("failed to list prior outputs for continuation preamble", "error", err)
		}
	}

	if err := m.tasks.SetState(ctx, task.ID, store.TaskStateRunning, nil); err != nil {
		log.Error("failed to mark task running", "error", err)
	}

	iteration := startIteration
	for n := 0; n < m.cfg.MaxIterations; n++ {
		if ctx.Err() != nil {
			// Paused: the caller that cancelled us owns persisting
			// TaskStatePaused, so just stop (spec §4.E defines Finalizing
			// only for the loop's own terminal outcomes).
			return
		}

		iteration++
		result, err := m.steps.Run(ctx, m.buildStepRequest(req, iteration, currentImage, followUp))
		followUp = "" // only the first iteration of a continuation gets the preamble
		if err != nil {
			if ctx.Err() != nil {
				// Cancelled out from under the in-flight iteration by Pause;
				// leave the terminal state to the caller.
				return
			}
			m.finalize(ctx, task.ID, store.TaskStateFailed, err.Error())
			return
		}

		m.storeOutput(ctx, task, iteration, currentImage, result)

		switch {
		case result.AgentFailed:
			m.finalize(ctx, task.ID, store.TaskStateFailed, result.Error)
			return
		case result.DeploymentRequested:
			m.createDeployment(ctx, task.ID, result.Deployment)
			m.finalize(ctx, task.ID, store.TaskStateCompleted, "")
			return
		case result.Completed:
			m.finalize(ctx, task.ID, store.TaskStateCompleted, "")
			return
		case result.CapabilityRequested:
			currentImage, policyVersion = m.approve(ctx, task.ID, currentImage, policyVersion, result.Capability)
		}
	}

	m.finalize(ctx, task.ID, store.TaskStateFailed, fmt.Sprintf("iteration cap of %d reached without completion", m.cfg.MaxIterations))
}

// buildStepRequest assembles one iteration's agentstep.Request, resolving
// the workspace path and reading the task's current Dockerfile text so the
// agent can see what capabilities are already installed (spec §4.D step 3).
func (m *Manager) buildStepRequest(req StartRequest, iteration int, currentImage, followUp string) agentstep.Request {
	task := req.Task
	return agentstep.Request{
		TaskID:          task.ID,
		Iteration:       iteration,
		Image:           currentImage,
		DockerfileText:  m.readDockerfile(task.ID),
		TaskDescription: task.Prompt,
		Model:           task.Model,
		ControlPlaneURL: req.ControlPlaneURL,
		OllamaURL:       req.OllamaURL,
		FollowUp:        followUp,
		WorkspaceDir:    filepath.Join(m.paths.WorkspacesRoot, task.WorkspaceID),
	}
}

func (m *Manager) readDockerfile(taskID string) string {
	data, err := os.ReadFile(filepath.Join(m.paths.AgentImagesDir, taskID, "Dockerfile"))
	if err != nil {
		return ""
	}
	return string(data)
}

// continuationPreamble builds the synthesised prompt prefix that tells the
// agent it is improving prior output rather than starting fresh (spec §4.E
// "Continuations").
func continuationPreamble(existingFiles []string) string {
	var b strings.Builder
	b.WriteString("You are continuing work on this task. The following files already exist in your workspace from a previous run:\n")
	for _, f := range existingFiles {
		b.WriteString("- ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	b.WriteString("Improve or extend this existing output rather than starting over.")
	return b.String()
}

// storeOutput persists one iteration's result envelope. Per spec §4.E this
// is explicitly non-blocking: a storage failure is logged, not propagated.
func (m *Manager) storeOutput(ctx context.Context, task *store.Task, iteration int, imageTag string, result *agentstep.Result) {
	var errMsg *string
	if result.Error != "" {
		e := result.Error
		errMsg = &e
	}
	o := &store.TaskOutput{
		ID:                  uuid.NewString(),
		TaskID:              task.ID,
		Iteration:           iteration,
		Completed:           result.Completed,
		CapabilityRequested: result.CapabilityRequested,
		ContainerLog:        result.AgentLogs,
		Result:              result.Output,
		Deliverables:        result.Deliverables,
		ErrorMessage:        errMsg,
		ImageTag:            imageTag,
		Model:               task.Model,
	}
	if err := m.outputs.Append(ctx, o); err != nil {
		m.logger.Warn("failed to store iteration output", "task_id", task.ID, "iteration", iteration, "error", err)
	}
}

// approve implements the Approving state (spec §4.E): create a pending
// CapabilityRequest, suspend for up to ApprovalTimeout waiting for the
// `approve_capability` signal, and on approval synchronously rebuild the
// image before resuming iteration.
func (m *Manager) approve(ctx context.Context, taskID, currentImage string, policyVersion int, cap *agentstep.CapabilityPayload) (string, int) {
	reqID := uuid.NewString()
	cr := &store.CapabilityRequest{
		ID:            reqID,
		TaskID:        taskID,
		Kind:          mapCapabilityKind(cap.Type),
		Resource:      cap.Resource,
		Justification: cap.Justification,
	}
	if err := m.caps.Create(ctx, cr); err != nil {
		m.logger.Error("failed to create capability request", "task_id", taskID, "error", err)
		return currentImage, policyVersion
	}

	decision := m.registerPending(reqID)
	defer m.unregisterPending(reqID)

	var approved bool
	select {
	case approved = <-decision:
	case <-time.After(m.cfg.ApprovalTimeout):
		approved = false
		if err := m.caps.Decide(ctx, reqID, store.CapabilityDenied); err != nil {
			m.logger.Warn("failed to record approval timeout", "request_id", reqID, "error", err)
		}
	case <-ctx.Done():
		return currentImage, policyVersion
	}

	if !approved {
		return currentImage, policyVersion
	}

	return m.rebuildImage(ctx, taskID, currentImage, policyVersion, cap)
}

// rebuildImage synchronously invokes the image builder with the approved
// capability, falling back to the current image on any build failure (spec
// §4.E "On success, adopt the new image... On failure, fall back to the
// base image").
func (m *Manager) rebuildImage(ctx context.Context, taskID, currentImage string, policyVersion int, cap *agentstep.CapabilityPayload) (string, int) {
	build, err := m.builder.Build(ctx, imagebuilder.BuildRequest{
		TaskID:    taskID,
		BaseImage: currentImage,
		Capabilities: []imagebuilder.Capability{
			{Kind: imagebuilder.PackageKind(cap.Type), Name: cap.Resource},
		},
	})
	if err != nil {
		m.logger.Warn("capability build request rejected, continuing on current image", "task_id", taskID, "error", err)
		return currentImage, policyVersion
	}

	final := m.pollBuild(ctx, build.ID)
	if final == nil || final.Status != imagebuilder.BuildSuccess {
		m.logger.Warn("capability build failed, falling back to current image", "task_id", taskID, "build_id", build.ID)
		return currentImage, policyVersion
	}

	newVersion, err := m.policies.NextVersion(ctx, taskID)
	if err != nil {
		m.logger.Warn("failed to resolve next policy version", "task_id", taskID, "error", err)
		newVersion = policyVersion + 1
	}
	if err := m.policies.Create(ctx, &store.Policy{TaskID: taskID, Version: newVersion, AllowedTools: []string{cap.Resource}}); err != nil {
		m.logger.Warn("failed to persist policy version", "task_id", taskID, "error", err)
	}
	if err := m.tasks.SetCurrentImage(ctx, taskID, final.ImageTag, newVersion); err != nil {
		m.logger.Warn("failed to persist current image", "task_id", taskID, "error", err)
	}
	return final.ImageTag, newVersion
}

// pollBuild polls the image builder until the build reaches a terminal
// status or the context ends.
func (m *Manager) pollBuild(ctx context.Context, buildID string) *imagebuilder.Build {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()
	for {
		build, err := m.builder.GetBuild(buildID)
		if err == nil && (build.Status == imagebuilder.BuildSuccess || build.Status == imagebuilder.BuildFailed) {
			return build
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// createDeployment inserts the pending_approval Deployment row on a
// deployment_requested iteration (spec §4.E, §4.F "Create").
func (m *Manager) createDeployment(ctx context.Context, taskID string, payload *agentstep.DeploymentPayload) {
	if payload == nil {
		return
	}
	d := &store.Deployment{
		ID:         uuid.NewString(),
		TaskID:     taskID,
		Name:       payload.Name,
		Entrypoint: payload.Entrypoint,
		Port:       payload.Port,
		Files:      payload.Files,
		State:      store.DeploymentPendingApproval,
	}
	if err := m.deploys.Create(ctx, d); err != nil {
		m.logger.Error("failed to create deployment record", "task_id", taskID, "error", err)
	}
}

// finalize implements the Finalizing state: persist the task's terminal
// state and error, if any (spec §4.E "Finalizing").
func (m *Manager) finalize(ctx context.Context, taskID string, state store.TaskState, errMsg string) {
	var msg *string
	if errMsg != "" {
		msg = &errMsg
	}
	if err := m.tasks.SetState(ctx, taskID, state, msg); err != nil {
		m.logger.Error("failed to finalize task state", "task_id", taskID, "state", state, "error", err)
	}
}

// mapCapabilityKind translates the agent-reported marker kind (a package
// manager vocabulary: pip_package, npm_package, apt_package, tool) into the
// store's gated-resource vocabulary. Everything that isn't explicitly a
// network/filesystem/database request is treated as a tool install, since
// every package-manager kind ultimately materialises as an installed tool.
func mapCapabilityKind(agentKind string) store.CapabilityKind {
	switch agentKind {
	case "network_access":
		return store.CapabilityNetworkAccess
	case "filesystem_access":
		return store.CapabilityFilesystemAccess
	case "database_access":
		return store.CapabilityDatabaseAccess
	default:
		return store.CapabilityToolInstall
	}
}
