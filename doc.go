/*
go-facewatch renders live overlays for a video feed from per frame face
detection results and labels each frame with anomalies such as no person in
view, multiple persons or a face turned away from the camera.

Detection is performed by an external model server reached through the
Detector interface.  The mapper package projects detection coordinates onto
the displayed video under a CSS "cover" fit and the anomaly package
classifies the detections.  The monitor package drives both at a fixed
cadence, the stream package serves the annotated video and events to a
browser and the eventbus package publishes frame events to redis.

See the stream and image executables under example/ for usage.
*/
package facewatch
