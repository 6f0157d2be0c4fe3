package vision

// windowAnalysisPrompt asks the model for a strict-JSON window energy
// assessment. {location} is replaced with the property's location before
// sending.
const windowAnalysisPrompt = `You are a building-energy assessor reviewing photos of a residential property in {location}.

Examine the windows and facade visible in the attached photos and respond with a single JSON object, no prose, matching exactly this schema:

{
  "windows": {
    "frame_material": "aluminum | wood | pvc | mixed | unknown",
    "glazing_type": "single | double | triple | unknown",
    "window_to_wall_ratio": 0.0,
    "size": "small | medium | large",
    "condition": "poor | fair | good | excellent",
    "confidence": 0.0
  },
  "energy_features": {
    "shutters": false,
    "external_shading": false,
    "modern_features": []
  },
  "orientation": {
    "estimated": "north | south | east | west | unknown",
    "confidence": 0.0,
    "reasoning": ""
  },
  "bioclimatic_score": {
    "score": 0,
    "strengths": [],
    "weaknesses": []
  },
  "recommendations": [
    {
      "action": "",
      "priority": "high | medium | low",
      "estimated_cost": "",
      "annual_savings": ""
    }
  ]
}

Score bioclimatic_score.score from 0 to 10 for the climate of {location}. Base cost and savings estimates on typical local retrofit prices. If something is not visible in the photos, use "unknown" and lower the confidence rather than guessing.`
